package domain

// Registry holds the loaded test files keyed by path, in registration order.
type Registry struct {
	order  []*File
	byPath map[string]*File
}

// NewRegistry creates an empty Registry
func NewRegistry() *Registry {
	return &Registry{byPath: make(map[string]*File)}
}

// Add registers path. It returns the existing file when path is known.
func (r *Registry) Add(path string) (*File, bool) {
	if file, ok := r.byPath[path]; ok {
		return file, false
	}
	file := NewFile(path)
	r.byPath[path] = file
	r.order = append(r.order, file)
	return file, true
}

// Get returns the file registered at path, or nil.
func (r *Registry) Get(path string) *File {
	return r.byPath[path]
}

// Has reports whether path is a registered test file.
func (r *Registry) Has(path string) bool {
	_, ok := r.byPath[path]
	return ok
}

// Remove unregisters path and returns the removed file.
func (r *Registry) Remove(path string) *File {
	file, ok := r.byPath[path]
	if !ok {
		return nil
	}
	delete(r.byPath, path)
	for i, f := range r.order {
		if f == file {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return file
}

// Files returns the registered files in registration order.
func (r *Registry) Files() []*File {
	files := make([]*File, len(r.order))
	copy(files, r.order)
	return files
}

// Len returns the number of registered files.
func (r *Registry) Len() int {
	return len(r.order)
}
