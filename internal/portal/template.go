package portal

import (
	"fmt"
	"html/template"
	"sync"
)

type templator struct {
	cfg  *Config
	mu   sync.Mutex
	tmpl map[string]*template.Template
}

func newTemplator(cfg *Config) *templator {
	return &templator{
		cfg:  cfg,
		tmpl: make(map[string]*template.Template),
	}
}

func (t *templator) makeFuncs() template.FuncMap {
	return template.FuncMap{
		"asStaticURL": func(s string) string {
			return s + "?" + t.cfg.ServerID
		},
		"logoutElement": func() string {
			return t.cfg.opts.Logout.ElementID
		},
	}
}

// Get returns the template for the given page, parsed together with the base layout.
func (t *templator) Get(name string) (*template.Template, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if tmpl, ok := t.tmpl[name]; ok {
		return tmpl, nil
	}
	tmpl, err := template.New("base.html").Funcs(t.makeFuncs()).ParseFS(
		templates,
		"template/base.html",
		fmt.Sprintf("template/%v.html", name),
	)
	if err != nil {
		return nil, fmt.Errorf("template %v parse: %w", name, err)
	}
	t.tmpl[name] = tmpl
	return tmpl, nil
}
