// Package mcp is a client for Model Context Protocol servers spoken to over
// stdio with Content-Length framed JSON-RPC. Remote tools are exposed
// through the common tools.Tool interface.
package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/codefionn/krim/internal/config"
	"github.com/codefionn/krim/internal/logger"
	"github.com/codefionn/krim/internal/progress"
	"github.com/codefionn/krim/internal/tools"
)

// Manager owns every started server and the tools they contribute.
type Manager struct {
	mu      sync.Mutex
	servers []*Server
	closed  bool
}

func NewManager() *Manager {
	return &Manager{}
}

// StartAll starts every configured server. A server that fails is logged
// and reported to sink; the others still start.
func (m *Manager) StartAll(ctx context.Context, configs []config.MCPServerConfig, sink progress.Callback, opts ...Option) []error {
	var errs []error
	for _, cfg := range configs {
		srv, err := Start(ctx, cfg, opts...)
		if err != nil {
			logger.Warn("mcp: failed to start %s: %v", cfg.Name, err)
			_ = progress.Dispatch(sink, progress.Update{
				Kind:       progress.KindWarning,
				Message:    fmt.Sprintf("mcp: failed to start %s: %v", cfg.Name, err),
				AddNewLine: true,
			})
			errs = append(errs, fmt.Errorf("%s: %w", cfg.Name, err))
			continue
		}
		m.Add(srv)
	}
	return errs
}

// Add hands a running server to the manager.
func (m *Manager) Add(s *Server) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.servers = append(m.servers, s)
}

func (m *Manager) Servers() []*Server {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*Server(nil), m.servers...)
}

// RegisterTools adds every remote tool to r and returns the exposed names.
// A name already taken gets the server name as prefix, then a number.
func (m *Manager) RegisterTools(r *tools.Registry) []string {
	usage := make(map[string]int)
	for _, name := range r.Names() {
		usage[name] = 1
	}

	var added []string
	for _, srv := range m.Servers() {
		for _, remote := range srv.Tools() {
			name := exposedName(srv.Name(), remote.Name, usage)
			r.Register(NewTool(srv, name, remote))
			added = append(added, name)
		}
	}
	return added
}

func exposedName(server, tool string, usage map[string]int) string {
	base := sanitizeName(tool)
	if usage[base] == 0 {
		usage[base] = 1
		return base
	}
	prefixed := sanitizeName(server) + "_" + base
	if usage[prefixed] == 0 {
		usage[prefixed] = 1
		return prefixed
	}
	return uniqueToolName(prefixed, usage)
}

// Close stops every server exactly once.
func (m *Manager) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	servers := m.servers
	m.mu.Unlock()

	var errs []error
	for _, s := range servers {
		if err := s.Close(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// sanitizeName keeps characters provider APIs accept in tool names.
func sanitizeName(name string) string {
	var b strings.Builder
	prevUnderscore := false
	for _, r := range name {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' {
			b.WriteRune(r)
			prevUnderscore = false
			continue
		}
		if !prevUnderscore {
			b.WriteByte('_')
			prevUnderscore = true
		}
	}
	result := strings.Trim(b.String(), "_")
	if result == "" {
		return "mcp"
	}
	return result
}

func uniqueToolName(base string, usage map[string]int) string {
	count := usage[base]
	if count == 0 {
		usage[base] = 1
		return base
	}
	for {
		count++
		usage[base] = count
		candidate := fmt.Sprintf("%s_%d", base, count)
		if usage[candidate] == 0 {
			usage[candidate] = 1
			return candidate
		}
	}
}
