package normalisers

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/custodia-labs/coworker/internal/core/domain"
	"github.com/custodia-labs/coworker/internal/core/ports/driven"
	"github.com/custodia-labs/coworker/internal/logger"
)

// Ensure Registry implements the interface.
var _ driven.NormaliserRegistry = (*Registry)(nil)

// Registry selects a normaliser by MIME type or file extension.
// When several match, the highest priority wins; ties go to the earliest
// registered. It is safe for concurrent use.
type Registry struct {
	mu          sync.RWMutex
	normalisers []driven.Normaliser
}

// NewRegistry creates a registry with the given normalisers.
func NewRegistry(normalisers ...driven.Normaliser) *Registry {
	r := &Registry{}
	for _, n := range normalisers {
		r.Register(n)
	}
	return r
}

// Register adds a normaliser to the registry.
func (r *Registry) Register(n driven.Normaliser) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.normalisers = append(r.normalisers, n)
}

// Classify returns the content variant for a file.
func (r *Registry) Classify(file *domain.FileUpload) domain.ContentKind {
	if n := r.lookup(file); n != nil {
		return n.Kind()
	}
	return domain.ContentUnsupported
}

// Normalise extracts documents with the best matching normaliser.
// Unsupported files fail with domain.ErrValidation wrapping
// domain.ErrUnsupportedType. Every returned document has an id and the
// upload's tenant.
func (r *Registry) Normalise(ctx context.Context, file *domain.FileUpload) ([]domain.Document, error) {
	if file == nil {
		return nil, fmt.Errorf("%w: file is nil", domain.ErrValidation)
	}
	n := r.lookup(file)
	if n == nil {
		return nil, fmt.Errorf("%w: %w: %s (%s)", domain.ErrValidation, domain.ErrUnsupportedType, file.Name, file.MIMEType)
	}

	logger.Debug("normalisers: %s -> %s", file.Name, n.Kind())
	docs, err := n.Normalise(ctx, file)
	if err != nil {
		return nil, fmt.Errorf("normalise %s as %s: %w", file.Name, n.Kind(), err)
	}
	for i := range docs {
		if docs[i].ID == "" {
			docs[i].ID = file.DocumentID()
		}
		if docs[i].Tenant == "" {
			docs[i].Tenant = file.Tenant
		}
	}
	return docs, nil
}

// SupportedMIMETypes returns all MIME types that can be normalised, sorted.
func (r *Registry) SupportedMIMETypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]struct{})
	for _, n := range r.normalisers {
		for _, mt := range n.SupportedMIMETypes() {
			seen[mt] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for mt := range seen {
		out = append(out, mt)
	}
	sort.Strings(out)
	return out
}

func (r *Registry) lookup(file *domain.FileUpload) driven.Normaliser {
	if file == nil {
		return nil
	}
	mimeType := file.BaseMIMEType()
	ext := file.Ext()

	r.mu.RLock()
	defer r.mu.RUnlock()

	var best driven.Normaliser
	for _, n := range r.normalisers {
		if !contains(n.SupportedMIMETypes(), mimeType) && !contains(n.SupportedExtensions(), ext) {
			continue
		}
		if best == nil || n.Priority() > best.Priority() {
			best = n
		}
	}
	return best
}

func contains(values []string, v string) bool {
	if v == "" {
		return false
	}
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}
