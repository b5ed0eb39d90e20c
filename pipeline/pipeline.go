package pipeline

import (
	"context"
	"fmt"

	"github.com/rushteam/shoprec/core"
)

// Pipeline 把推荐逻辑拆成可组合的 Node 链：上一个 Node 的输出是下一个 Node 的输入。
// 链路是同步、顺序执行的，不引入内部并发。
type Pipeline struct {
	Nodes []Node
}

// Append 在链尾追加 Node，nil 被忽略。
func (p *Pipeline) Append(nodes ...Node) *Pipeline {
	for _, n := range nodes {
		if n != nil {
			p.Nodes = append(p.Nodes, n)
		}
	}
	return p
}

func (p *Pipeline) Run(
	ctx context.Context,
	rctx *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	cur := items
	for _, node := range p.Nodes {
		next, err := node.Process(ctx, rctx, cur)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", node.Name(), err)
		}
		cur = next
	}
	return cur, nil
}
