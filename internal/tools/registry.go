package tools

import (
	"github.com/codefionn/krim/internal/fs"
	"github.com/codefionn/krim/internal/safety"
)

// Options configures the built-in tools.
type Options struct {
	FS        fs.FileSystem
	WorkDir   string
	Policy    *safety.Policy
	Confirmer safety.Confirmer
	// MaxOutput caps bash output; zero means the default.
	MaxOutput int
	// OnFileChanged is called with the path of every file written or edited.
	OnFileChanged func(path string)
}

// NewDefaultRegistry registers read, write, edit and bash.
func NewDefaultRegistry(opts Options) *Registry {
	if opts.FS == nil {
		opts.FS = fs.NewCachedFS(opts.WorkDir, 0)
	}
	if opts.Policy == nil {
		opts.Policy = safety.DefaultPolicy()
	}
	if opts.Confirmer == nil {
		opts.Confirmer = safety.NewTerminalConfirmer()
	}

	r := NewRegistry()
	r.Register(NewReadTool(opts.FS))
	r.Register(NewWriteTool(opts.FS, opts.OnFileChanged))
	r.Register(NewEditTool(opts.FS, opts.OnFileChanged))
	r.Register(NewBashTool(opts.WorkDir, opts.Policy, opts.Confirmer, opts.MaxOutput))
	return r
}

func notify(cb func(string), path string) {
	if cb != nil {
		cb(path)
	}
}
