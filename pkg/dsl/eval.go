package dsl

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"

	"github.com/rushteam/shoprec/core"
)

var (
	// celEnv 是全局的 CEL 环境，线程安全，可复用
	celEnv     *cel.Env
	celEnvErr  error
	celEnvOnce sync.Once
)

func getCELEnv() (*cel.Env, error) {
	celEnvOnce.Do(func() {
		celEnv, celEnvErr = cel.NewEnv(
			cel.Variable("item", cel.DynType),
			cel.Variable("label", cel.DynType),
			cel.Variable("rctx", cel.DynType),
		)
	})
	return celEnv, celEnvErr
}

// Program 是编译好的 Label DSL 表达式，使用 CEL (Common Expression Language) 实现。
// 编译一次，可在多个 goroutine 中并发 Eval。
//
// 可用变量：
//   - item.id / item.score / item.meta / item.labels
//   - label.<key>：item label 的 value，例如 label.recall_source == "u2i"
//   - rctx.user_id / rctx.limit / rctx.params / rctx.labels
//
// 示例：
//   - `item.score >= 0.5`
//   - `label.recall_source == "u2i" && item.meta.neighbors >= 2`
//   - `!(item.id in rctx.params.exclude)`
type Program struct {
	expr string
	prg  cel.Program
}

// Compile 编译表达式；空表达式恒为 true。
func Compile(expr string) (*Program, error) {
	if expr == "" {
		return &Program{}, nil
	}
	env, err := getCELEnv()
	if err != nil {
		return nil, fmt.Errorf("cel env: %w", err)
	}
	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compile %q: %w", expr, issues.Err())
	}
	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("program %q: %w", expr, err)
	}
	return &Program{expr: expr, prg: prg}, nil
}

// String 返回原始表达式。
func (p *Program) String() string { return p.expr }

// Eval 对单个 item 求值，表达式必须返回 bool。
func (p *Program) Eval(item *core.Item, rctx *core.RecommendContext) (bool, error) {
	if p == nil || p.prg == nil {
		return true, nil
	}
	out, _, err := p.prg.Eval(buildInput(item, rctx))
	if err != nil {
		// 访问不存在的 key 会报错，表达式里应先用 has() 检查
		return false, fmt.Errorf("eval %q: %w", p.expr, err)
	}
	result, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("expression must return boolean, got %T", out.Value())
	}
	return result, nil
}

// Evaluate 是一次性求值的便捷函数。
func Evaluate(expr string, item *core.Item, rctx *core.RecommendContext) (bool, error) {
	p, err := Compile(expr)
	if err != nil {
		return false, err
	}
	return p.Eval(item, rctx)
}

func buildInput(item *core.Item, rctx *core.RecommendContext) map[string]any {
	labels := make(map[string]any)
	labelValues := make(map[string]any)
	itemInput := map[string]any{
		"id":     "",
		"score":  0.0,
		"meta":   map[string]any{},
		"labels": labels,
	}
	if item != nil {
		for k, v := range item.Labels {
			labels[k] = map[string]any{"value": v.Value, "source": v.Source}
			labelValues[k] = v.Value
		}
		itemInput["id"] = item.ID
		itemInput["score"] = item.Score
		if item.Meta != nil {
			itemInput["meta"] = item.Meta
		}
	}

	rctxInput := map[string]any{
		"user_id": "",
		"limit":   0,
		"params":  map[string]any{},
		"labels":  map[string]any{},
	}
	if rctx != nil {
		rctxInput["user_id"] = rctx.UserID
		rctxInput["limit"] = rctx.Limit
		if rctx.Params != nil {
			rctxInput["params"] = rctx.Params
		}
		reqLabels := make(map[string]any, len(rctx.Labels))
		for k, v := range rctx.Labels {
			reqLabels[k] = v.Value
		}
		rctxInput["labels"] = reqLabels
	}

	return map[string]any{
		"item":  itemInput,
		"label": labelValues,
		"rctx":  rctxInput,
	}
}
