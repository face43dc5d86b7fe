package movement

import (
	"encoding/json"
	"fmt"
	"strings"
)

// InvalidPayloadError reports a missing or malformed required field. It is raised
// before any network call is made.
type InvalidPayloadError struct {
	Field  string
	Reason string
}

func (e *InvalidPayloadError) Error() string {
	return e.Reason
}

var errMissingFields = &InvalidPayloadError{
	Field:  "sender",
	Reason: "Missing required fields: sender and payload.function",
}

// FunctionID is a parsed "<address>::<module>::<name>" identifier.
type FunctionID struct {
	Address string
	Module  string
	Name    string
}

// ParseFunctionID splits id into its three segments. The address is normalized.
func ParseFunctionID(id string) (FunctionID, error) {
	parts := strings.Split(id, "::")
	if len(parts) != 3 {
		return FunctionID{}, &InvalidPayloadError{
			Field:  "function",
			Reason: fmt.Sprintf("Invalid function format %q: expected <address>::<module>::<name>", id),
		}
	}
	for _, p := range parts {
		if strings.TrimSpace(p) == "" {
			return FunctionID{}, &InvalidPayloadError{
				Field:  "function",
				Reason: fmt.Sprintf("Invalid function format %q: empty segment", id),
			}
		}
	}
	return FunctionID{Address: NormalizeAddress(parts[0]), Module: parts[1], Name: parts[2]}, nil
}

func (f FunctionID) String() string {
	return f.Address + "::" + f.Module + "::" + f.Name
}

// ModuleID returns "<address>::<module>".
func (f FunctionID) ModuleID() string {
	return f.Address + "::" + f.Module
}

// Validate checks that the payload names a well-formed function.
func (p *EntryFunctionPayload) Validate() error {
	if p == nil || p.Function == "" {
		return &InvalidPayloadError{Field: "function", Reason: "Payload must include a function"}
	}
	_, err := ParseFunctionID(p.Function)
	return err
}

// ParsePayload decodes a JSON payload, defaulting missing type arguments and
// arguments to empty lists. Argument values are kept verbatim.
func ParsePayload(s string) (*EntryFunctionPayload, error) {
	var p EntryFunctionPayload
	if err := json.Unmarshal([]byte(s), &p); err != nil {
		return nil, &InvalidPayloadError{Field: "payload", Reason: "Invalid payload JSON: " + err.Error()}
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	p.TypeArguments = nonNil(p.TypeArguments)
	p.Arguments = nonNil(p.Arguments)
	return &p, nil
}

// NormalizeAddress lowercases a hex address and guarantees a 0x prefix.
func NormalizeAddress(addr string) string {
	addr = strings.ToLower(strings.TrimSpace(addr))
	if addr == "" {
		return ""
	}
	return "0x" + strings.TrimPrefix(addr, "0x")
}

// AddressesEqual compares two addresses ignoring the 0x prefix, case and leading zeros,
// so "0x1" and "0x0000...0001" are the same account.
func AddressesEqual(a, b string) bool {
	return canonicalHex(a) == canonicalHex(b)
}

func canonicalHex(addr string) string {
	h := strings.TrimLeft(strings.TrimPrefix(NormalizeAddress(addr), "0x"), "0")
	if h == "" {
		return "0"
	}
	return h
}
