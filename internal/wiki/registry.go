package wiki

import "fmt"

// Target describes a single wiki served by the dashboard.
type Target struct {
	Lang       string
	Domain     string
	ReplicaDSN string
}

// UserPageURL links a reviewer name to their user page on this wiki.
func (t Target) UserPageURL(user string) string {
	return fmt.Sprintf("https://%s/wiki/User:%s", t.Domain, user)
}

// PageURL links a (display) page title on this wiki.
func (t Target) PageURL(title string) string {
	return fmt.Sprintf("https://%s/wiki/%s", t.Domain, title)
}

// Registry keeps a mapping from language codes to their wiki targets.
type Registry struct {
	targets map[string]Target
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{targets: map[string]Target{}}
}

// Register adds or replaces a wiki target.
func (r *Registry) Register(target Target) {
	if r.targets == nil {
		r.targets = map[string]Target{}
	}
	r.targets[target.Lang] = target
}

// Resolve returns a target by language code or an error if it is absent.
func (r *Registry) Resolve(lang string) (Target, error) {
	if target, ok := r.targets[lang]; ok {
		return target, nil
	}
	return Target{}, fmt.Errorf("wiki %s is not registered", lang)
}

// Langs lists all registered language codes.
func (r *Registry) Langs() []string {
	langs := make([]string, 0, len(r.targets))
	for lang := range r.targets {
		langs = append(langs, lang)
	}
	return langs
}
