package reconstruct

import (
	"encoding/json"
	"strings"

	"github.com/kamalbuilds/movetracer/movement"
)

const inferredFunction = "called_function"

// ExecutionTrace is a call tree inferred from the modules that emitted events. The node
// exposes no call stack, so every node is marked Estimated and child gas is an even split.
type ExecutionTrace struct {
	Function      string                      `json:"function"`
	Module        string                      `json:"module"`
	TypeArguments []string                    `json:"type_arguments"`
	Arguments     []json.RawMessage           `json:"arguments"`
	GasUsed       uint64                      `json:"gas_used"`
	Depth         int                         `json:"depth"`
	Children      []*ExecutionTrace           `json:"children"`
	Events        []movement.TransactionEvent `json:"events"`
	Estimated     bool                        `json:"estimated"`
}

// BuildExecutionTrace roots the tree at the invoked entry function and adds one child
// per other module that emitted events, in order of first emission.
func BuildExecutionTrace(payload movement.EntryFunctionPayload, events []movement.TransactionEvent, gasUsed uint64) (*ExecutionTrace, error) {
	id, err := movement.ParseFunctionID(payload.Function)
	if err != nil {
		return nil, err
	}
	if events == nil {
		events = []movement.TransactionEvent{}
	}

	root := &ExecutionTrace{
		Function:      id.Name,
		Module:        id.ModuleID(),
		TypeArguments: orEmpty(payload.TypeArguments),
		Arguments:     orEmpty(payload.Arguments),
		GasUsed:       gasUsed,
		Children:      []*ExecutionTrace{},
		Events:        events,
		Estimated:     true,
	}

	modules, grouped := groupByModule(events)
	childGas := gasUsed / uint64(len(modules)+1)
	for _, module := range modules {
		if movement.AddressesEqual(moduleAddress(module), id.Address) && moduleName(module) == id.Module {
			continue
		}
		root.Children = append(root.Children, &ExecutionTrace{
			Function:      inferredFunction,
			Module:        module,
			TypeArguments: []string{},
			Arguments:     []json.RawMessage{},
			GasUsed:       childGas,
			Depth:         1,
			Children:      []*ExecutionTrace{},
			Events:        grouped[module],
			Estimated:     true,
		})
	}
	return root, nil
}

// groupByModule groups events by "<address>::<module>" of their type, keeping the order
// in which modules first appear.
func groupByModule(events []movement.TransactionEvent) ([]string, map[string][]movement.TransactionEvent) {
	var order []string
	grouped := make(map[string][]movement.TransactionEvent)
	for _, event := range events {
		parts := strings.SplitN(event.Type, "::", 3)
		if len(parts) < 2 {
			continue
		}
		module := parts[0] + "::" + parts[1]
		if _, seen := grouped[module]; !seen {
			order = append(order, module)
		}
		grouped[module] = append(grouped[module], event)
	}
	return order, grouped
}

func moduleAddress(module string) string {
	addr, _, _ := strings.Cut(module, "::")
	return addr
}

func moduleName(module string) string {
	_, name, _ := strings.Cut(module, "::")
	return name
}

func orEmpty[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
