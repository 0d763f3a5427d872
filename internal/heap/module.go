package heap

import "bytes"

const (
	wasmMagic   = "\x00asm"
	wasmVersion = "\x01\x00\x00\x00"

	sectionMemory = 5
	sectionExport = 7

	externMemory = 0x02
	limitsMinMax = 0x01

	memoryExport = "memory"
)

// memoryModule encodes a module whose only content is one exported linear
// memory with the given page limits.
func memoryModule(minPages, maxPages uint32) []byte {
	var out bytes.Buffer
	out.WriteString(wasmMagic)
	out.WriteString(wasmVersion)

	var mem bytes.Buffer
	writeLEB128u(&mem, 1)
	mem.WriteByte(limitsMinMax)
	writeLEB128u(&mem, minPages)
	writeLEB128u(&mem, maxPages)
	writeSection(&out, sectionMemory, mem.Bytes())

	var exp bytes.Buffer
	writeLEB128u(&exp, 1)
	writeLEB128u(&exp, uint32(len(memoryExport)))
	exp.WriteString(memoryExport)
	exp.WriteByte(externMemory)
	writeLEB128u(&exp, 0)
	writeSection(&out, sectionExport, exp.Bytes())

	return out.Bytes()
}

func writeSection(w *bytes.Buffer, id byte, content []byte) {
	w.WriteByte(id)
	writeLEB128u(w, uint32(len(content)))
	w.Write(content)
}

func writeLEB128u(w *bytes.Buffer, v uint32) {
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			b |= 0x80
		}
		w.WriteByte(b)
		if v == 0 {
			break
		}
	}
}
