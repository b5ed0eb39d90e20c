package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rushteam/shoprec/core"
)

type funcNode struct {
	name string
	fn   func([]*core.Item) ([]*core.Item, error)
}

func (n funcNode) Name() string { return n.name }
func (n funcNode) Kind() Kind   { return KindPostProcess }
func (n funcNode) Process(_ context.Context, _ *core.RecommendContext, items []*core.Item) ([]*core.Item, error) {
	return n.fn(items)
}

func appendItem(id string) Node {
	return funcNode{name: "append." + id, fn: func(items []*core.Item) ([]*core.Item, error) {
		return append(items, core.NewItem(id)), nil
	}}
}

func TestPipeline_RunsNodesInOrder(t *testing.T) {
	p := (&Pipeline{}).Append(appendItem("a"), nil, appendItem("b"))
	if len(p.Nodes) != 2 {
		t.Fatalf("nodes = %d, want 2", len(p.Nodes))
	}

	items, err := p.Run(context.Background(), &core.RecommendContext{}, nil)
	if err != nil {
		t.Fatal(err)
	}
	ids := core.ItemIDs(items)
	if strings.Join(ids, ",") != "a,b" {
		t.Errorf("got %v, want [a b]", ids)
	}
}

func TestPipeline_WrapsNodeError(t *testing.T) {
	boom := errors.New("boom")
	called := false
	p := &Pipeline{Nodes: []Node{
		funcNode{name: "broken", fn: func([]*core.Item) ([]*core.Item, error) { return nil, boom }},
		funcNode{name: "after", fn: func(items []*core.Item) ([]*core.Item, error) {
			called = true
			return items, nil
		}},
	}}

	_, err := p.Run(context.Background(), &core.RecommendContext{}, nil)
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}
	if !strings.HasPrefix(err.Error(), "broken:") {
		t.Errorf("err = %q, want node name prefix", err)
	}
	if called {
		t.Error("node after the failure was run")
	}
}

func TestConfig_BuildPipeline(t *testing.T) {
	cfg, err := ParseYAML([]byte(`
pipeline:
  name: test
  nodes:
    - type: append
      config:
        id: x
    - type: append
      config:
        id: y
`))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Pipeline.Name != "test" || len(cfg.Pipeline.Nodes) != 2 {
		t.Fatalf("parsed config = %+v", cfg.Pipeline)
	}

	factory := NewNodeFactory()
	factory.Register("append", func(c map[string]any) (Node, error) {
		id, _ := c["id"].(string)
		return appendItem(id), nil
	})
	p, err := cfg.BuildPipeline(factory)
	if err != nil {
		t.Fatal(err)
	}
	items, err := p.Run(context.Background(), &core.RecommendContext{}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if got := strings.Join(core.ItemIDs(items), ","); got != "x,y" {
		t.Errorf("got %s, want x,y", got)
	}

	cfg.Pipeline.Nodes = append(cfg.Pipeline.Nodes, NodeConfig{Type: "unknown"})
	if _, err := cfg.BuildPipeline(factory); err == nil {
		t.Error("expected error for unknown node type")
	}
}

func TestParseYAML_Invalid(t *testing.T) {
	if _, err := ParseYAML([]byte("pipeline: [")); err == nil {
		t.Error("expected parse error")
	}
	if _, err := LoadFromYAML("/nonexistent/pipeline.yaml"); err == nil {
		t.Error("expected read error")
	}
}
