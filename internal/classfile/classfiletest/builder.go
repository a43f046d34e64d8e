// Package classfiletest synthesizes minimal class files for tests.
package classfiletest

import (
	"bytes"
	"encoding/binary"
	"strings"
)

// Class describes a synthetic class file.
type Class struct {
	Name  string
	Super string
	// Refs become CONSTANT_Class entries.
	Refs []string
	// Fields become field_info entries with the given descriptors.
	Fields []string
	// Methods become method_info entries with the given descriptors.
	Methods []string
	// Calls become Methodref entries: "owner.name:descriptor".
	Calls []string
}

type pool struct {
	buf   bytes.Buffer
	count uint16
	utf8  map[string]uint16
	class map[string]uint16
}

func newPool() *pool {
	return &pool{count: 1, utf8: map[string]uint16{}, class: map[string]uint16{}}
}

func (p *pool) next() uint16 {
	i := p.count
	p.count++
	return i
}

func (p *pool) utf(s string) uint16 {
	if i, ok := p.utf8[s]; ok {
		return i
	}
	p.buf.WriteByte(1)
	_ = binary.Write(&p.buf, binary.BigEndian, uint16(len(s)))
	p.buf.WriteString(s)
	i := p.next()
	p.utf8[s] = i
	return i
}

func (p *pool) cls(name string) uint16 {
	if i, ok := p.class[name]; ok {
		return i
	}
	n := p.utf(name)
	p.buf.WriteByte(7)
	_ = binary.Write(&p.buf, binary.BigEndian, n)
	i := p.next()
	p.class[name] = i
	return i
}

func (p *pool) methodref(owner, name, desc string) {
	c := p.cls(owner)
	nm := p.utf(name)
	d := p.utf(desc)
	p.buf.WriteByte(12)
	_ = binary.Write(&p.buf, binary.BigEndian, nm)
	_ = binary.Write(&p.buf, binary.BigEndian, d)
	nt := p.next()
	p.buf.WriteByte(10)
	_ = binary.Write(&p.buf, binary.BigEndian, c)
	_ = binary.Write(&p.buf, binary.BigEndian, nt)
	p.next()
}

func (p *pool) long() {
	p.buf.WriteByte(5)
	p.buf.Write(make([]byte, 8))
	p.count += 2
}

// Bytes encodes the class. A long constant is always emitted so that the
// two-slot rule is exercised.
func (c Class) Bytes() []byte {
	p := newPool()
	this := p.cls(c.Name)
	var super uint16
	if c.Super != "" {
		super = p.cls(c.Super)
	}
	p.long()
	for _, r := range c.Refs {
		p.cls(r)
	}
	for _, call := range c.Calls {
		owner, rest, _ := strings.Cut(call, ".")
		name, desc, _ := strings.Cut(rest, ":")
		p.methodref(owner, name, desc)
	}
	type member struct{ name, desc uint16 }
	var fields, methods []member
	for i, d := range c.Fields {
		fields = append(fields, member{p.utf("f" + string(rune('a'+i))), p.utf(d)})
	}
	for i, d := range c.Methods {
		methods = append(methods, member{p.utf("m" + string(rune('a'+i))), p.utf(d)})
	}

	code := p.utf("Code")

	var out bytes.Buffer
	w := func(v any) { _ = binary.Write(&out, binary.BigEndian, v) }
	w(uint32(0xCAFEBABE))
	w(uint16(0))
	w(uint16(52))
	w(p.count)
	out.Write(p.buf.Bytes())
	w(uint16(0x0021))
	w(this)
	w(super)
	w(uint16(0)) // interfaces
	for _, list := range [][]member{fields, methods} {
		w(uint16(len(list)))
		for _, m := range list {
			w(uint16(0x0001))
			w(m.name)
			w(m.desc)
			w(uint16(1)) // one opaque attribute
			w(code)
			w(uint32(3))
			out.Write([]byte{0, 1, 2})
		}
	}
	w(uint16(0)) // class attributes
	return out.Bytes()
}
