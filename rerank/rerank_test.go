package rerank

import (
	"context"
	"strings"
	"testing"

	"github.com/rushteam/shoprec/core"
	"github.com/rushteam/shoprec/pkg/utils"
)

func scored(pairs ...any) []*core.Item {
	out := make([]*core.Item, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		it := core.NewItem(pairs[i].(string))
		it.Score = pairs[i+1].(float64)
		out = append(out, it)
	}
	return out
}

func TestTopNNode(t *testing.T) {
	tests := []struct {
		name  string
		n     int
		limit int
		want  string
	}{
		{"explicit n", 2, 10, "c,a"},
		{"request limit", 0, 3, "c,a,b"},
		{"no limit", 0, 0, "c,a,b,d"},
		{"n larger than input", 10, 0, "c,a,b,d"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := scored("d", 1.0, "b", 2.0, "a", 2.0, "c", 3.0)
			out, err := (&TopNNode{N: tt.n}).Process(context.Background(), &core.RecommendContext{Limit: tt.limit}, in)
			if err != nil {
				t.Fatal(err)
			}
			if got := strings.Join(core.ItemIDs(out), ","); got != tt.want {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestDiversity(t *testing.T) {
	in := scored("p1", 5.0, "p2", 4.0, "p3", 3.0, "p4", 2.0, "p5", 1.0)
	in[0].Meta["category"] = "shoes"
	in[1].Meta["category"] = "shoes"
	in[2].PutLabel("category", utils.Label{Value: "hats"})
	in[3].Meta["category"] = "shoes"
	// p5 没有类目

	out, err := (&Diversity{}).Process(context.Background(), nil, in)
	if err != nil {
		t.Fatal(err)
	}
	if got := strings.Join(core.ItemIDs(out), ","); got != "p1,p3,p5" {
		t.Errorf("got %s, want p1,p3,p5", got)
	}

	out, err = (&Diversity{MaxPerCategory: 2}).Process(context.Background(), nil, in)
	if err != nil {
		t.Fatal(err)
	}
	if got := strings.Join(core.ItemIDs(out), ","); got != "p1,p2,p3,p5" {
		t.Errorf("got %s, want p1,p2,p3,p5", got)
	}
}
