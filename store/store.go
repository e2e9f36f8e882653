// Package store implements the C2 graph store: loading per-user,
// per-feature k-NN graphs and the users/subnets indexes produced by
// the out-of-scope batch collaborator (spec/§4.2, §6).
//
// Reads go through an injected afero.Fs (defaulting to afero.OsFs),
// grounded on activecm/rita's filesystem-backed layers built on
// spf13/afero, so tests substitute afero.MemMapFs without touching a
// real disk. The users/subnets lists are read-mostly and cached after
// first read behind a single sync.RWMutex per spec/§5.
package store

import (
	"context"
	"fmt"
	"path"
	"regexp"
	"sort"
	"sync"

	json "github.com/goccy/go-json"
	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"

	"github.com/rucd-project/apt-graph/domain"
	"github.com/rucd-project/apt-graph/graphx"
)

// FeatureGraphBundle is, for one user, the ordered sequence of F
// feature graphs — spec/§3. Order is significant: Graphs[i] is the
// same similarity measure across every user's bundle in one batch.
type FeatureGraphBundle struct {
	Graphs []*graphx.Graph
}

// Store is the C2 contract.
type Store interface {
	GetUserGraphs(ctx context.Context, inputDir, user string) (*FeatureGraphBundle, error)
	GetAllUsers(ctx context.Context, inputDir string) ([]string, error)
	GetAllSubnets(ctx context.Context, inputDir string) ([]string, error)
	GetK(ctx context.Context, inputDir string) (int, error)
}

// FileStore is the filesystem-backed Store implementation.
type FileStore struct {
	fs afero.Fs

	mu           sync.RWMutex
	usersCache   map[string][]string
	subnetsCache map[string][]string
}

// NewFileStore constructs a FileStore over fs. A nil fs defaults to
// the real OS filesystem.
func NewFileStore(fs afero.Fs) *FileStore {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &FileStore{
		fs:           fs,
		usersCache:   make(map[string][]string),
		subnetsCache: make(map[string][]string),
	}
}

// GetAllUsers returns the ordered list of user identifiers for
// inputDir, cached after the first read.
func (s *FileStore) GetAllUsers(ctx context.Context, inputDir string) ([]string, error) {
	return s.cachedList(ctx, inputDir, "users.json", s.usersCache, func(b []byte) ([]string, error) {
		var su serializedUsers
		if err := json.Unmarshal(b, &su); err != nil {
			return nil, fmt.Errorf("%w: users.json: %v", ErrMalformed, err)
		}
		return su.Users, nil
	})
}

// GetAllSubnets returns the ordered list of subnet identifiers for
// inputDir, cached after the first read.
func (s *FileStore) GetAllSubnets(ctx context.Context, inputDir string) ([]string, error) {
	return s.cachedList(ctx, inputDir, "subnets.json", s.subnetsCache, func(b []byte) ([]string, error) {
		var ss serializedSubnets
		if err := json.Unmarshal(b, &ss); err != nil {
			return nil, fmt.Errorf("%w: subnets.json: %v", ErrMalformed, err)
		}
		return ss.Subnets, nil
	})
}

func (s *FileStore) cachedList(ctx context.Context, inputDir, filename string, cache map[string][]string, decode func([]byte) ([]string, error)) ([]string, error) {
	s.mu.RLock()
	if list, ok := cache[inputDir]; ok {
		s.mu.RUnlock()
		return list, nil
	}
	s.mu.RUnlock()

	b, err := afero.ReadFile(s.fs, path.Join(inputDir, filename))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrRead, filename, err)
	}
	list, err := decode(b)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	cache[inputDir] = list
	s.mu.Unlock()

	return list, nil
}

// GetK returns the common k used during batch k-NN for inputDir. Not
// cached: it is a single scalar read, cheap enough that spec/§5's
// read-mostly caching concern does not apply.
func (s *FileStore) GetK(ctx context.Context, inputDir string) (int, error) {
	b, err := afero.ReadFile(s.fs, path.Join(inputDir, "k.json"))
	if err != nil {
		return 0, fmt.Errorf("%w: k.json: %v", ErrRead, err)
	}
	var sk serializedK
	if err := json.Unmarshal(b, &sk); err != nil {
		return 0, fmt.Errorf("%w: k.json: %v", ErrMalformed, err)
	}
	return sk.K, nil
}

var featureFilePattern = regexp.MustCompile(`^(.+)_(\d+)\.json$`)

// GetUserGraphs loads every "<user>_<feature>.json" file for user in
// inputDir and returns them as a FeatureGraphBundle in ascending
// feature-index order. The F feature files are read concurrently via
// errgroup, one goroutine per feature — grounded on activecm/rita's
// errgroup.WithContext fan-out of independent per-source analyses and
// on the teacher's flow.Dinic convention of checking ctx.Err() at loop
// boundaries: each goroutine checks the group context before it reads,
// so a cancelled ctx skips reads not yet started, while a read already
// under way runs to completion.
func (s *FileStore) GetUserGraphs(ctx context.Context, inputDir, user string) (*FeatureGraphBundle, error) {
	entries, err := afero.ReadDir(s.fs, inputDir)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrRead, inputDir, err)
	}

	var featureIndexes []int
	for _, e := range entries {
		m := featureFilePattern.FindStringSubmatch(e.Name())
		if m == nil || m[1] != user {
			continue
		}
		var idx int
		if _, err := fmt.Sscanf(m[2], "%d", &idx); err != nil {
			continue
		}
		featureIndexes = append(featureIndexes, idx)
	}
	if len(featureIndexes) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrUserNotFound, user)
	}
	sort.Ints(featureIndexes)

	graphs := make([]*graphx.Graph, len(featureIndexes))

	group, gctx := errgroup.WithContext(ctx)
	for slot, idx := range featureIndexes {
		slot, idx := slot, idx
		group.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			g, err := s.readFeatureGraph(inputDir, user, idx)
			if err != nil {
				return err
			}
			graphs[slot] = g
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}

	return &FeatureGraphBundle{Graphs: graphs}, nil
}

func (s *FileStore) readFeatureGraph(inputDir, user string, feature int) (*graphx.Graph, error) {
	filename := fmt.Sprintf("%s_%d.json", user, feature)
	b, err := afero.ReadFile(s.fs, path.Join(inputDir, filename))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrRead, filename, err)
	}

	var sg serializedGraph
	if err := json.Unmarshal(b, &sg); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformed, filename, err)
	}

	domains := make(map[string]*domain.Domain, len(sg.Nodes))
	for _, n := range sg.Nodes {
		d := domain.NewDomain(n.Name)
		for _, r := range n.Requests {
			d.AddRequest(domain.Request{
				Timestamp: r.Timestamp,
				Method:    r.Method,
				Target:    r.Target,
				Status:    r.Status,
				BytesIn:   r.BytesIn,
				BytesOut:  r.BytesOut,
				ClientID:  r.ClientID,
			})
		}
		domains[n.Name] = d
	}

	g := graphx.New(sg.KMax)
	for _, n := range sg.Nodes {
		var nbrs graphx.NeighborList
		for _, nb := range n.Neighbors {
			nd, ok := domains[nb.Name]
			if !ok {
				nd = domain.NewDomain(nb.Name)
				domains[nb.Name] = nd
			}
			nbrs = append(nbrs, graphx.Neighbor{Node: nd, Similarity: nb.Similarity})
		}
		g.Put(domains[n.Name], nbrs)
	}

	return g, nil
}
