package tree

import (
	"strconv"
	"strings"
)

// Symbols defines the tokens of the key syntax.
type Symbols struct {
	PropertyDelimiter string
	EscapedDelimiter  string
	IndexStart        string
	IndexEnd          string
	AttributeStart    string
	AttributeEnd      string
}

// DefaultSymbols is the default key syntax: "a.b(1).c[@attr]". A dot inside a
// node name is written as "..".
var DefaultSymbols = Symbols{
	PropertyDelimiter: ".",
	EscapedDelimiter:  "..",
	IndexStart:        "(",
	IndexEnd:          ")",
	AttributeStart:    "[@",
	AttributeEnd:      "]",
}

// KeyElement is a single part of a configuration key.
type KeyElement struct {
	Name      string
	Index     int
	HasIndex  bool
	Attribute bool
}

// Key is a configuration key builder bound to a set of symbols.
type Key struct {
	symbols Symbols
	buf     strings.Builder
}

// Append method appends a property name to the key. If escape is true,
// property delimiters in the name are escaped.
func (k *Key) Append(property string, escape bool) *Key {
	if property == "" {
		return k
	}

	if escape && !k.symbols.IsAttributeKey(property) {
		property = k.symbols.escape(property)
	}

	if k.buf.Len() > 0 && !k.symbols.IsAttributeKey(property) &&
		!k.symbols.endsWithDelimiter(k.buf.String()) &&
		!k.symbols.startsWithDelimiter(property) {

		k.buf.WriteString(k.symbols.PropertyDelimiter)
	}

	k.buf.WriteString(property)

	return k
}

// AppendIndex method appends an index to the last element of the key.
func (k *Key) AppendIndex(index int) *Key {
	k.buf.WriteString(k.symbols.IndexStart)
	k.buf.WriteString(strconv.Itoa(index))
	k.buf.WriteString(k.symbols.IndexEnd)

	return k
}

// AppendAttribute method appends an attribute reference to the key.
func (k *Key) AppendAttribute(name string) *Key {
	k.buf.WriteString(k.symbols.AttributeKey(name))
	return k
}

// Elements method splits the key into its elements.
func (k *Key) Elements() []KeyElement {
	return k.symbols.parse(k.buf.String())
}

// CommonKey method returns the longest key that is a prefix of both keys in
// terms of key elements.
func (k *Key) CommonKey(other *Key) *Key {
	res := &Key{symbols: k.symbols}
	elems := k.Elements()
	otherElems := other.Elements()

	for i := 0; i < len(elems) && i < len(otherElems); i++ {
		if elems[i] != otherElems[i] {
			break
		}

		res.appendElement(elems[i])
	}

	return res
}

// DifferenceKey method returns the part of the other key that follows the
// common key of both keys.
func (k *Key) DifferenceKey(other *Key) *Key {
	common := k.CommonKey(other)
	res := &Key{symbols: k.symbols}
	otherElems := other.Elements()

	for _, elem := range otherElems[len(common.Elements()):] {
		res.appendElement(elem)
	}

	return res
}

// Trim method removes leading and trailing property delimiters from the key.
// Escaped delimiters are kept.
func (k *Key) Trim() *Key {
	str := k.buf.String()
	delim := k.symbols.PropertyDelimiter
	esc := k.symbols.EscapedDelimiter

	for strings.HasPrefix(str, delim) && !strings.HasPrefix(str, esc) {
		str = str[len(delim):]
	}

	for strings.HasSuffix(str, delim) && !strings.HasSuffix(str, esc) {
		str = str[:len(str)-len(delim)]
	}

	k.buf.Reset()
	k.buf.WriteString(str)

	return k
}

// IsAttribute method reports whether the key references an attribute.
func (k *Key) IsAttribute() bool {
	elems := k.Elements()
	return len(elems) > 0 && elems[len(elems)-1].Attribute
}

func (k *Key) String() string {
	return k.buf.String()
}

func (k *Key) appendElement(elem KeyElement) {
	if elem.Attribute {
		k.AppendAttribute(elem.Name)
		return
	}

	k.Append(elem.Name, true)

	if elem.HasIndex {
		k.AppendIndex(elem.Index)
	}
}

// IsAttributeKey method reports whether the string is an attribute reference
// like "[@name]".
func (s Symbols) IsAttributeKey(key string) bool {
	return s.AttributeStart != "" &&
		strings.HasPrefix(key, s.AttributeStart) &&
		strings.HasSuffix(key, s.AttributeEnd) &&
		len(key) >= len(s.AttributeStart)+len(s.AttributeEnd)
}

// AttributeKey method builds an attribute reference from the attribute name.
func (s Symbols) AttributeKey(name string) string {
	if s.IsAttributeKey(name) {
		return name
	}

	return s.AttributeStart + name + s.AttributeEnd
}

// AttributeName method strips attribute markers from the key.
func (s Symbols) AttributeName(key string) string {
	if !s.IsAttributeKey(key) {
		return key
	}

	return key[len(s.AttributeStart) : len(key)-len(s.AttributeEnd)]
}

// endsWithDelimiter reports whether the string ends with a property delimiter
// that is not part of an escaped delimiter.
func (s Symbols) endsWithDelimiter(str string) bool {
	if s.PropertyDelimiter == "" {
		return false
	}

	if s.EscapedDelimiter != "" {
		for strings.HasSuffix(str, s.EscapedDelimiter) {
			str = str[:len(str)-len(s.EscapedDelimiter)]
		}
	}

	return strings.HasSuffix(str, s.PropertyDelimiter)
}

func (s Symbols) startsWithDelimiter(str string) bool {
	if s.PropertyDelimiter == "" {
		return false
	}

	if s.EscapedDelimiter != "" {
		for strings.HasPrefix(str, s.EscapedDelimiter) {
			str = str[len(s.EscapedDelimiter):]
		}
	}

	return strings.HasPrefix(str, s.PropertyDelimiter)
}

func (s Symbols) escape(name string) string {
	if s.EscapedDelimiter == "" || s.PropertyDelimiter == "" {
		return name
	}

	return strings.ReplaceAll(name, s.PropertyDelimiter, s.EscapedDelimiter)
}

func (s Symbols) parse(key string) []KeyElement {
	var elems []KeyElement
	keyLen := len(key)
	i := 0

	for i < keyLen {
		if s.PropertyDelimiter != "" && strings.HasPrefix(key[i:], s.PropertyDelimiter) &&
			!(s.EscapedDelimiter != "" && strings.HasPrefix(key[i:], s.EscapedDelimiter)) {

			i += len(s.PropertyDelimiter)
			continue
		}

		if s.AttributeStart != "" && strings.HasPrefix(key[i:], s.AttributeStart) {
			end := strings.Index(key[i+len(s.AttributeStart):], s.AttributeEnd)

			if end >= 0 {
				nameStart := i + len(s.AttributeStart)
				elems = append(elems, KeyElement{
					Name:      key[nameStart : nameStart+end],
					Attribute: true,
				})
				i = nameStart + end + len(s.AttributeEnd)

				continue
			}
		}

		var name strings.Builder
		j := i

		for j < keyLen {
			if s.EscapedDelimiter != "" && strings.HasPrefix(key[j:], s.EscapedDelimiter) {
				name.WriteString(s.PropertyDelimiter)
				j += len(s.EscapedDelimiter)

				continue
			}

			if s.PropertyDelimiter != "" && strings.HasPrefix(key[j:], s.PropertyDelimiter) {
				break
			}

			if s.AttributeStart != "" && j > i && strings.HasPrefix(key[j:], s.AttributeStart) {
				break
			}

			name.WriteByte(key[j])
			j++
		}

		elems = append(elems, s.element(name.String()))
		i = j
	}

	return elems
}

func (s Symbols) element(part string) KeyElement {
	elem := KeyElement{Name: part}

	if s.IndexStart == "" || !strings.HasSuffix(part, s.IndexEnd) {
		return elem
	}

	start := strings.LastIndex(part, s.IndexStart)

	if start <= 0 {
		return elem
	}

	idx, err := strconv.Atoi(part[start+len(s.IndexStart) : len(part)-len(s.IndexEnd)])

	if err != nil || idx < 0 {
		return elem
	}

	elem.Name = part[:start]
	elem.Index = idx
	elem.HasIndex = true

	return elem
}
