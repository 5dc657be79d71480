package interpol

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/spf13/cast"
)

const (
	errPref = "interpol"

	varStart      = "${"
	varEnd        = '}'
	escVarStart   = "$${"
	prefixSep     = ":"
	defaultSep    = ":-"
	cycleChainSep = " -> "
)

// ErrCycle is returned when a variable refers to itself directly or through
// other variables.
var ErrCycle = errors.New("infinite loop in interpolation")

// Interpolator expands ${...} markers in values. Variables are resolved through
// lookups registered by prefix, then through default lookups and finally
// through the parent interpolator. Interpolator is safe for concurrent use.
type Interpolator struct {
	mutex                 sync.RWMutex
	prefixLookups         map[string]Lookup
	defaultLookups        []Lookup
	parent                *Interpolator
	substituteInVariables bool
	converter             func(any) string
}

// Option configures an interpolator.
type Option func(*Interpolator)

// WithLookup registers a lookup for the prefix.
func WithLookup(prefix string, lookup Lookup) Option {
	return func(ip *Interpolator) {
		ip.prefixLookups[prefix] = lookup
	}
}

// WithLookups registers several lookups keyed by prefix.
func WithLookups(lookups map[string]Lookup) Option {
	return func(ip *Interpolator) {
		for prefix, lookup := range lookups {
			ip.prefixLookups[prefix] = lookup
		}
	}
}

// WithDefaultLookups appends lookups that are used for variables without a
// known prefix.
func WithDefaultLookups(lookups ...Lookup) Option {
	return func(ip *Interpolator) {
		ip.defaultLookups = append(ip.defaultLookups, lookups...)
	}
}

// WithParent sets the parent interpolator, that resolves variables unknown to
// this interpolator.
func WithParent(parent *Interpolator) Option {
	return func(ip *Interpolator) {
		ip.parent = parent
	}
}

// WithSubstituteInVariables enables expansion of markers inside variable names,
// like ${db.${env:STAGE}.host}.
func WithSubstituteInVariables(enable bool) Option {
	return func(ip *Interpolator) {
		ip.substituteInVariables = enable
	}
}

// WithStringConverter sets the function that converts resolved values to
// strings when they are embedded in a larger string.
func WithStringConverter(converter func(any) string) Option {
	return func(ip *Interpolator) {
		ip.converter = converter
	}
}

// New method creates new interpolator.
func New(opts ...Option) *Interpolator {
	ip := &Interpolator{
		prefixLookups: make(map[string]Lookup),
		converter:     ToString,
	}

	for _, apply := range opts {
		apply(ip)
	}

	return ip
}

// ToString method is the default string converter. Slices are represented by
// their first element.
func ToString(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case []any:
		if len(v) == 0 {
			return ""
		}

		return ToString(v[0])
	case []string:
		if len(v) == 0 {
			return ""
		}

		return v[0]
	}

	str, err := cast.ToStringE(value)

	if err != nil {
		return fmt.Sprintf("%v", value)
	}

	return str
}

// RegisterLookup method registers a lookup for the prefix. An existing lookup
// for the same prefix is replaced.
func (ip *Interpolator) RegisterLookup(prefix string, lookup Lookup) {
	ip.mutex.Lock()
	defer ip.mutex.Unlock()

	ip.prefixLookups[prefix] = lookup
}

// RegisterLookups method registers several lookups keyed by prefix.
func (ip *Interpolator) RegisterLookups(lookups map[string]Lookup) {
	ip.mutex.Lock()
	defer ip.mutex.Unlock()

	for prefix, lookup := range lookups {
		ip.prefixLookups[prefix] = lookup
	}
}

// DeregisterLookup method removes the lookup for the prefix. Returns false if
// no lookup was registered.
func (ip *Interpolator) DeregisterLookup(prefix string) bool {
	ip.mutex.Lock()
	defer ip.mutex.Unlock()

	_, ok := ip.prefixLookups[prefix]
	delete(ip.prefixLookups, prefix)

	return ok
}

// Prefixes method returns registered prefixes in sorted order.
func (ip *Interpolator) Prefixes() []string {
	ip.mutex.RLock()
	defer ip.mutex.RUnlock()

	prefixes := make([]string, 0, len(ip.prefixLookups))

	for prefix := range ip.prefixLookups {
		prefixes = append(prefixes, prefix)
	}

	sort.Strings(prefixes)

	return prefixes
}

// Lookups method returns a copy of the prefix lookups.
func (ip *Interpolator) Lookups() map[string]Lookup {
	ip.mutex.RLock()
	defer ip.mutex.RUnlock()

	res := make(map[string]Lookup, len(ip.prefixLookups))

	for prefix, lookup := range ip.prefixLookups {
		res[prefix] = lookup
	}

	return res
}

// AddDefaultLookups method appends default lookups.
func (ip *Interpolator) AddDefaultLookups(lookups ...Lookup) {
	ip.mutex.Lock()
	defer ip.mutex.Unlock()

	ip.defaultLookups = append(ip.defaultLookups, lookups...)
}

// SetDefaultLookups method replaces default lookups.
func (ip *Interpolator) SetDefaultLookups(lookups ...Lookup) {
	ip.mutex.Lock()
	defer ip.mutex.Unlock()

	ip.defaultLookups = append([]Lookup(nil), lookups...)
}

// DefaultLookups method returns a copy of default lookups.
func (ip *Interpolator) DefaultLookups() []Lookup {
	ip.mutex.RLock()
	defer ip.mutex.RUnlock()

	return append([]Lookup(nil), ip.defaultLookups...)
}

// SetParent method sets the parent interpolator.
func (ip *Interpolator) SetParent(parent *Interpolator) {
	ip.mutex.Lock()
	defer ip.mutex.Unlock()

	ip.parent = parent
}

// Parent method returns the parent interpolator or nil.
func (ip *Interpolator) Parent() *Interpolator {
	ip.mutex.RLock()
	defer ip.mutex.RUnlock()

	return ip.parent
}

// SetSubstituteInVariables method enables or disables expansion of markers
// inside variable names.
func (ip *Interpolator) SetSubstituteInVariables(enable bool) {
	ip.mutex.Lock()
	defer ip.mutex.Unlock()

	ip.substituteInVariables = enable
}

// Resolve method resolves a variable name. If the name has a registered prefix,
// the lookup for the prefix is asked with the rest of the name. Then default
// lookups are asked with the full name, then the parent interpolator.
func (ip *Interpolator) Resolve(name string) (any, bool) {
	ip.mutex.RLock()
	var prefixLookup Lookup
	var bareName string

	if prefix, rest, ok := strings.Cut(name, prefixSep); ok {
		prefixLookup = ip.prefixLookups[prefix]
		bareName = rest
	}

	defaultLookups := ip.defaultLookups
	parent := ip.parent
	ip.mutex.RUnlock()

	if prefixLookup != nil {
		if value, ok := prefixLookup.Lookup(bareName); ok && value != nil {
			return value, true
		}
	}

	for _, lookup := range defaultLookups {
		if value, ok := lookup.Lookup(name); ok && value != nil {
			return value, true
		}
	}

	if parent != nil {
		return parent.Resolve(name)
	}

	return nil, false
}

// Interpolate method expands markers in a value. Values other than strings are
// returned unchanged. A string that consists of a single marker is replaced by
// the resolved value itself, so the type of the value is kept.
func (ip *Interpolator) Interpolate(value any) (any, error) {
	str, ok := value.(string)

	if !ok {
		return value, nil
	}

	if isSingleVar(str) {
		return ip.resolveSingle(str)
	}

	return ip.substitute(str, nil)
}

// InterpolateString method expands all markers in the string.
func (ip *Interpolator) InterpolateString(str string) (string, error) {
	return ip.substitute(str, nil)
}

// InterpolateAll method interpolates every element of the list.
func (ip *Interpolator) InterpolateAll(values []any) ([]any, error) {
	res := make([]any, len(values))

	for i, value := range values {
		var err error
		res[i], err = ip.Interpolate(value)

		if err != nil {
			return nil, err
		}
	}

	return res, nil
}

func (ip *Interpolator) resolveSingle(str string) (any, error) {
	name, def, hasDef, err := ip.parseVar(str[len(varStart):len(str)-1], nil)

	if err != nil {
		return nil, err
	}

	if name == "" {
		return str, nil
	}

	value, ok := ip.Resolve(name)

	if !ok {
		if hasDef {
			return ip.substitute(def, nil)
		}

		return str, nil
	}

	if s, ok := value.(string); ok {
		return ip.substitute(s, []string{name})
	}

	return value, nil
}

func (ip *Interpolator) substitute(src string, chain []string) (string, error) {
	if !strings.Contains(src, varStart) {
		return src, nil
	}

	var res strings.Builder
	srcLen := len(src)
	i := 0

	for i < srcLen {
		switch {
		case strings.HasPrefix(src[i:], escVarStart):
			end := varEndIndex(src, i+len(escVarStart))

			if end < 0 {
				res.WriteString(src[i:])
				return res.String(), nil
			}

			res.WriteString(src[i+1 : end+1])
			i = end + 1
		case strings.HasPrefix(src[i:], varStart):
			end := varEndIndex(src, i+len(varStart))

			if end < 0 {
				res.WriteString(src[i:])
				return res.String(), nil
			}

			value, err := ip.expand(src[i+len(varStart):end], src[i:end+1], chain)

			if err != nil {
				return "", err
			}

			res.WriteString(value)
			i = end + 1
		default:
			res.WriteByte(src[i])
			i++
		}
	}

	return res.String(), nil
}

func (ip *Interpolator) expand(varExpr, raw string, chain []string) (string, error) {
	name, def, hasDef, err := ip.parseVar(varExpr, chain)

	if err != nil {
		return "", err
	}

	if name == "" {
		return raw, nil
	}

	if err := checkCycle(name, chain); err != nil {
		return "", err
	}

	value, ok := ip.Resolve(name)

	if !ok {
		if hasDef {
			return ip.substitute(def, chain)
		}

		return raw, nil
	}

	ip.mutex.RLock()
	converter := ip.converter
	ip.mutex.RUnlock()

	next := append(chain[:len(chain):len(chain)], name)

	return ip.substitute(converter(value), next)
}

func (ip *Interpolator) parseVar(varExpr string, chain []string) (string, string, bool, error) {
	ip.mutex.RLock()
	substInVars := ip.substituteInVariables
	ip.mutex.RUnlock()

	name, def, hasDef := cutDefault(varExpr)

	if substInVars {
		var err error
		name, err = ip.substitute(name, chain)

		if err != nil {
			return "", "", false, err
		}
	}

	return name, def, hasDef, nil
}

func checkCycle(name string, chain []string) error {
	for _, seen := range chain {
		if seen == name {
			return fmt.Errorf("%s: %w: %s", errPref, ErrCycle,
				strings.Join(append(chain[:len(chain):len(chain)], name), cycleChainSep))
		}
	}

	return nil
}

// varEndIndex returns the position of the brace that closes the marker, whose
// body starts at the given position. Nested markers are skipped.
func varEndIndex(src string, start int) int {
	depth := 1

	for j := start; j < len(src); j++ {
		if strings.HasPrefix(src[j:], varStart) {
			depth++
			j++

			continue
		}

		if src[j] == varEnd {
			depth--

			if depth == 0 {
				return j
			}
		}
	}

	return -1
}

// cutDefault splits the variable expression at the first default separator
// that is not inside a nested marker.
func cutDefault(varExpr string) (string, string, bool) {
	depth := 0

	for j := 0; j < len(varExpr); j++ {
		switch {
		case strings.HasPrefix(varExpr[j:], varStart):
			depth++
			j++
		case varExpr[j] == varEnd && depth > 0:
			depth--
		case depth == 0 && strings.HasPrefix(varExpr[j:], defaultSep):
			return varExpr[:j], varExpr[j+len(defaultSep):], true
		}
	}

	return varExpr, "", false
}

func isSingleVar(str string) bool {
	return strings.HasPrefix(str, varStart) &&
		varEndIndex(str, len(varStart)) == len(str)-1
}
