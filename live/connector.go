package live

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/asaskevich/EventBus"
	"go.uber.org/zap"

	"github.com/rustyeddy/macross/sim"
)

// Options carries what a connector needs to open a session.
type Options struct {
	Sim    sim.Config
	Bus    EventBus.Bus
	Logger *zap.Logger
}

// Connector opens a session with a trading engine.
type Connector func(ctx context.Context, opts Options) (Session, error)

var (
	mu         sync.RWMutex
	connectors = make(map[string]Connector)
)

func Register(name string, c Connector) {
	mu.Lock()
	defer mu.Unlock()
	connectors[strings.ToLower(name)] = c
}

// Registered lists connector names in sorted order.
func Registered() []string {
	mu.RLock()
	defer mu.RUnlock()
	names := make([]string, 0, len(connectors))
	for n := range connectors {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Connect opens a session with the named connector. Unknown names and
// connector failures are reported as *CollaboratorUnavailable.
func Connect(ctx context.Context, name string, opts Options) (Session, error) {
	mu.RLock()
	c, ok := connectors[strings.ToLower(name)]
	mu.RUnlock()
	if !ok {
		return nil, &CollaboratorUnavailable{Name: name}
	}

	s, err := c(ctx, opts)
	if err != nil {
		return nil, &CollaboratorUnavailable{Name: name, Err: err}
	}
	return s, nil
}

func init() {
	Register("paper", NewPaperSession)
}
