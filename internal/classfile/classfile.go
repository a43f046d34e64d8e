// Package classfile reads JVM class files and recovers the classes they reference.
package classfile

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/xab-mack/jvmdeps/internal/model"
)

const magic = 0xCAFEBABE

// ErrCorruptArtifact is wrapped by every parse failure.
var ErrCorruptArtifact = errors.New("corrupt artifact")

// FormatError describes where a class file stopped making sense.
type FormatError struct {
	Offset int
	Msg    string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("%s at offset %d: %s", ErrCorruptArtifact, e.Offset, e.Msg)
}

func (e *FormatError) Unwrap() error { return ErrCorruptArtifact }

// constant pool tags
const (
	tagUtf8               = 1
	tagInteger            = 3
	tagFloat              = 4
	tagLong               = 5
	tagDouble             = 6
	tagClass              = 7
	tagString             = 8
	tagFieldref           = 9
	tagMethodref          = 10
	tagInterfaceMethodref = 11
	tagNameAndType        = 12
	tagMethodHandle       = 15
	tagMethodType         = 16
	tagDynamic            = 17
	tagInvokeDynamic      = 18
	tagModule             = 19
	tagPackage            = 20
)

type constant struct {
	tag  byte
	utf8 string
	// index operands; meaning depends on tag
	a, b uint16
}

// ClassFile is the subset of a parsed class file needed for dependency analysis.
type ClassFile struct {
	Major      uint16
	ThisClass  string
	SuperClass string
	// Referenced holds every internal class name mentioned by the class,
	// including its own.
	Referenced map[string]struct{}
}

// Parse decodes a class file.
func Parse(data []byte) (*ClassFile, error) {
	r := &reader{buf: data}
	if m := r.u4(); r.err == nil && m != magic {
		return nil, &FormatError{Offset: 0, Msg: fmt.Sprintf("bad magic 0x%08x", m)}
	}
	r.u2() // minor
	major := r.u2()
	pool, err := readPool(r)
	if err != nil {
		return nil, err
	}
	r.u2() // access flags
	thisIdx := r.u2()
	superIdx := r.u2()
	ifaces := int(r.u2())
	r.skip(2 * ifaces)
	if r.err != nil {
		return nil, r.err
	}

	cf := &ClassFile{Major: major, Referenced: map[string]struct{}{}}
	if cf.ThisClass, err = className(pool, thisIdx, r.off); err != nil {
		return nil, err
	}
	if superIdx != 0 {
		if cf.SuperClass, err = className(pool, superIdx, r.off); err != nil {
			return nil, err
		}
	}

	for i := 1; i < len(pool); i++ {
		c := pool[i]
		switch c.tag {
		case tagClass:
			name, err := utf8At(pool, c.a, r.off)
			if err != nil {
				return nil, err
			}
			cf.addClassConstant(name)
		case tagNameAndType:
			desc, err := utf8At(pool, c.b, r.off)
			if err != nil {
				return nil, err
			}
			cf.addDescriptor(desc)
		case tagMethodType:
			desc, err := utf8At(pool, c.a, r.off)
			if err != nil {
				return nil, err
			}
			cf.addDescriptor(desc)
		}
	}

	// fields then methods share a layout
	for section := 0; section < 2; section++ {
		count := int(r.u2())
		for i := 0; i < count && r.err == nil; i++ {
			r.u2() // access flags
			r.u2() // name
			descIdx := r.u2()
			if r.err != nil {
				break
			}
			desc, err := utf8At(pool, descIdx, r.off)
			if err != nil {
				return nil, err
			}
			cf.addDescriptor(desc)
			skipAttributes(r)
		}
	}
	if r.err != nil {
		return nil, r.err
	}
	return cf, nil
}

// ExternalReferences returns the artifacts this class references, excluding itself.
func (cf *ClassFile) ExternalReferences() model.ArtifactSet {
	out := make(model.ArtifactSet, len(cf.Referenced))
	for name := range cf.Referenced {
		if name == cf.ThisClass {
			continue
		}
		out.Add(model.ArtifactFromClass(name))
	}
	return out
}

func (cf *ClassFile) addClassConstant(name string) {
	if strings.HasPrefix(name, "[") {
		cf.addDescriptor(name)
		return
	}
	if name != "" {
		cf.Referenced[name] = struct{}{}
	}
}

// addDescriptor records every L<name>; class mentioned in a field or method descriptor.
func (cf *ClassFile) addDescriptor(desc string) {
	for i := 0; i < len(desc); i++ {
		if desc[i] != 'L' {
			continue
		}
		end := strings.IndexByte(desc[i:], ';')
		if end < 0 {
			return
		}
		if name := desc[i+1 : i+end]; name != "" {
			cf.Referenced[name] = struct{}{}
		}
		i += end
	}
}

func readPool(r *reader) ([]constant, error) {
	count := int(r.u2())
	if r.err != nil {
		return nil, r.err
	}
	if count == 0 {
		return nil, &FormatError{Offset: r.off, Msg: "empty constant pool"}
	}
	pool := make([]constant, count)
	for i := 1; i < count; i++ {
		start := r.off
		tag := r.u1()
		c := constant{tag: tag}
		switch tag {
		case tagUtf8:
			n := int(r.u2())
			c.utf8 = string(r.bytes(n))
		case tagInteger, tagFloat:
			r.skip(4)
		case tagLong, tagDouble:
			r.skip(8)
			pool[i] = c
			i++ // eight-byte constants take two slots
			continue
		case tagClass, tagString, tagMethodType, tagModule, tagPackage:
			c.a = r.u2()
		case tagFieldref, tagMethodref, tagInterfaceMethodref, tagNameAndType, tagDynamic, tagInvokeDynamic:
			c.a = r.u2()
			c.b = r.u2()
		case tagMethodHandle:
			r.u1()
			c.a = r.u2()
		default:
			if r.err == nil {
				return nil, &FormatError{Offset: start, Msg: fmt.Sprintf("unknown constant tag %d", tag)}
			}
		}
		if r.err != nil {
			return nil, r.err
		}
		pool[i] = c
	}
	return pool, nil
}

func utf8At(pool []constant, idx uint16, off int) (string, error) {
	if int(idx) <= 0 || int(idx) >= len(pool) || pool[idx].tag != tagUtf8 {
		return "", &FormatError{Offset: off, Msg: fmt.Sprintf("constant %d is not utf8", idx)}
	}
	return pool[idx].utf8, nil
}

func className(pool []constant, idx uint16, off int) (string, error) {
	if int(idx) <= 0 || int(idx) >= len(pool) || pool[idx].tag != tagClass {
		return "", &FormatError{Offset: off, Msg: fmt.Sprintf("constant %d is not a class", idx)}
	}
	return utf8At(pool, pool[idx].a, off)
}

func skipAttributes(r *reader) {
	n := int(r.u2())
	for i := 0; i < n && r.err == nil; i++ {
		r.u2()
		r.skip(int(r.u4()))
	}
}

// reader is a big-endian cursor with a sticky error.
type reader struct {
	buf []byte
	off int
	err error
}

func (r *reader) need(n int) bool {
	if r.err != nil {
		return false
	}
	if n < 0 || len(r.buf)-r.off < n {
		r.err = &FormatError{Offset: r.off, Msg: "unexpected end of data"}
		return false
	}
	return true
}

func (r *reader) u1() byte {
	if !r.need(1) {
		return 0
	}
	v := r.buf[r.off]
	r.off++
	return v
}

func (r *reader) u2() uint16 {
	if !r.need(2) {
		return 0
	}
	v := binary.BigEndian.Uint16(r.buf[r.off:])
	r.off += 2
	return v
}

func (r *reader) u4() uint32 {
	if !r.need(4) {
		return 0
	}
	v := binary.BigEndian.Uint32(r.buf[r.off:])
	r.off += 4
	return v
}

func (r *reader) bytes(n int) []byte {
	if !r.need(n) {
		return nil
	}
	v := r.buf[r.off : r.off+n]
	r.off += n
	return v
}

func (r *reader) skip(n int) {
	if r.need(n) {
		r.off += n
	}
}

// Inspector extracts the external class references of one compiled artifact.
type Inspector interface {
	Inspect(data []byte) (model.ArtifactSet, error)
}

// Parser is the default Inspector.
type Parser struct{}

func (Parser) Inspect(data []byte) (model.ArtifactSet, error) {
	cf, err := Parse(data)
	if err != nil {
		return nil, err
	}
	return cf.ExternalReferences(), nil
}

// InspectFile reads and inspects a class file on disk.
func InspectFile(in Inspector, path string) (model.ArtifactSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	refs, err := in.Inspect(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return refs, nil
}
