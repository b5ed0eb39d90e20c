package dsl

import (
	"testing"

	"github.com/rushteam/shoprec/core"
	"github.com/rushteam/shoprec/pkg/utils"
)

func TestEvaluate(t *testing.T) {
	item := core.NewItem("p1")
	item.Score = 0.8
	item.Meta["neighbors"] = 3
	item.PutLabel("recall_source", utils.RecallLabel("u2i"))

	rctx := &core.RecommendContext{UserID: "u1", Limit: 5}
	rctx.PutLabel(core.LabelColdStart, utils.Label{Value: "no_neighbors"})

	tests := []struct {
		expr string
		want bool
	}{
		{"", true},
		{"item.score >= 0.5", true},
		{"item.score > 0.9", false},
		{`item.id == "p1"`, true},
		{`label.recall_source == "u2i" && item.meta.neighbors >= 2`, true},
		{`item.labels.recall_source.source == "recall"`, true},
		{`rctx.user_id == "u1" && rctx.limit == 5`, true},
		{`rctx.labels.cold_start == "no_neighbors"`, true},
		{`has(item.meta.price)`, false},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			got, err := Evaluate(tt.expr, item, rctx)
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEvaluate_Errors(t *testing.T) {
	item := core.NewItem("p1")

	if _, err := Compile("item.score >"); err == nil {
		t.Error("expected compile error")
	}
	if _, err := Evaluate(`item.score + 1.0`, item, nil); err == nil {
		t.Error("expected non-bool error")
	}
	if _, err := Evaluate(`item.meta.missing > 1`, item, nil); err == nil {
		t.Error("expected missing key error")
	}
}

func TestProgram_NilInputs(t *testing.T) {
	p, err := Compile(`item.id == "" && rctx.user_id == ""`)
	if err != nil {
		t.Fatal(err)
	}
	if p.String() == "" {
		t.Error("String() lost the expression")
	}
	ok, err := p.Eval(nil, nil)
	if err != nil || !ok {
		t.Errorf("Eval(nil, nil) = %v, %v", ok, err)
	}
}
