package orchestrator

import (
	"time"

	"github.com/dominikbraun/graph"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// ErrTransition is returned when a run tries to move between two states that
// are not connected.
var ErrTransition = errors.New("invalid state transition")

// State is a stage of a run.
type State string

const (
	Idle        State = "idle"
	Fetching    State = "fetching"
	Balancing   State = "balancing"
	Visualizing State = "visualizing"
	Splitting   State = "splitting"
	Training    State = "training"
	Reporting   State = "reporting"
	Done        State = "done"
)

// transitions lists every allowed move. Balancing and Visualizing are optional.
var transitions = [][2]State{
	{Idle, Fetching},
	{Fetching, Balancing},
	{Fetching, Visualizing},
	{Fetching, Splitting},
	{Balancing, Visualizing},
	{Balancing, Splitting},
	{Visualizing, Splitting},
	{Splitting, Training},
	{Training, Reporting},
	{Reporting, Done},
}

// newStateGraph builds the transition DAG. Cycles are rejected on insert, so
// a run can never go back to an earlier state.
func newStateGraph() (graph.Graph[string, string], error) {
	g := graph.New(graph.StringHash, graph.Directed(), graph.Acyclic(), graph.PreventCycles())
	for _, s := range []State{Idle, Fetching, Balancing, Visualizing, Splitting, Training, Reporting, Done} {
		if err := g.AddVertex(string(s)); err != nil {
			return nil, errors.Wrapf(err, "state graph: vertex %s", s)
		}
	}
	for _, t := range transitions {
		if err := g.AddEdge(string(t[0]), string(t[1])); err != nil {
			return nil, errors.Wrapf(err, "state graph: edge %s -> %s", t[0], t[1])
		}
	}
	return g, nil
}

// machine tracks the current state of one run.
type machine struct {
	graph   graph.Graph[string, string]
	current State
	since   time.Time
	history []State
	logger  *zap.Logger
}

func newMachine(logger *zap.Logger) (*machine, error) {
	g, err := newStateGraph()
	if err != nil {
		return nil, err
	}
	return &machine{graph: g, current: Idle, since: time.Now(), history: []State{Idle}, logger: logger}, nil
}

// enter moves to next if the graph has an edge from the current state.
func (m *machine) enter(next State) error {
	if _, err := m.graph.Edge(string(m.current), string(next)); err != nil {
		return errors.Wrapf(ErrTransition, "%s -> %s", m.current, next)
	}
	m.logger.Info("state",
		zap.String("from", string(m.current)),
		zap.String("to", string(next)),
		zap.Duration("took", time.Since(m.since)))
	m.current = next
	m.since = time.Now()
	m.history = append(m.history, next)
	return nil
}
