package reconstruct

// GasBreakdown mirrors an ExecutionTrace with each node's share of the root's gas.
type GasBreakdown struct {
	Function   string          `json:"function"`
	GasUsed    uint64          `json:"gas_used"`
	Percentage float64         `json:"percentage"`
	Children   []*GasBreakdown `json:"children"`
	Estimated  bool            `json:"estimated"`
}

// BuildGasBreakdown computes percentages against the root of trace. A zero-gas root
// yields 0% everywhere.
func BuildGasBreakdown(trace *ExecutionTrace) *GasBreakdown {
	if trace == nil {
		return nil
	}
	return breakdown(trace, trace.GasUsed)
}

func breakdown(node *ExecutionTrace, total uint64) *GasBreakdown {
	out := &GasBreakdown{
		Function:   node.Module + "::" + node.Function,
		GasUsed:    node.GasUsed,
		Percentage: percentage(node.GasUsed, total),
		Children:   make([]*GasBreakdown, 0, len(node.Children)),
		Estimated:  node.Estimated,
	}
	for _, child := range node.Children {
		out.Children = append(out.Children, breakdown(child, total))
	}
	return out
}

func percentage(part, total uint64) float64 {
	if total == 0 {
		return 0
	}
	return min(max(100*float64(part)/float64(total), 0), 100)
}
