package tasfile

import (
	"fmt"

	"github.com/annel0/tas-replay/internal/input"
	"github.com/annel0/tas-replay/internal/record"
)

const (
	frameSize     = 4 + 2
	sectorMinSize = 4*3 + 12*2 + 8
	objectIDSize  = 4
)

// payload разобранное содержимое полезной нагрузки контейнера
type payload struct {
	mapName string
	frames  []record.Frame
	sectors []record.Sector
}

func encodePayload(rec *record.Record) []byte {
	frames := rec.Frames()
	sectors := rec.Sectors()

	w := &writer{buf: make([]byte, 0, 8+len(rec.MapName())+8+len(frames)*frameSize+8+len(sectors)*sectorMinSize)}
	w.str(rec.MapName())

	w.u64(uint64(len(frames)))
	for _, f := range frames {
		w.f32(f.DeltaTime)
		w.u16(uint16(f.Input))
	}

	w.u64(uint64(len(sectors)))
	for _, s := range sectors {
		w.i32(s.ID)
		w.i32(s.FrameStart)
		w.i32(s.FrameEnd)
		w.vec3(s.StartPosition)
		w.vec3(s.EndPosition)
		w.u64(uint64(len(s.Objects)))
		for _, id := range s.Objects {
			w.u32(uint32(id))
		}
	}
	return w.buf
}

func decodePayload(data []byte) (*payload, error) {
	r := &reader{buf: data}
	p := &payload{mapName: r.str()}

	n := r.count(frameSize)
	p.frames = make([]record.Frame, n)
	for i := range p.frames {
		p.frames[i].DeltaTime = r.f32()
		p.frames[i].Input = input.KeyState(r.u16())
	}

	n = r.count(sectorMinSize)
	p.sectors = make([]record.Sector, n)
	for i := range p.sectors {
		s := &p.sectors[i]
		s.ID = r.i32()
		s.FrameStart = r.i32()
		s.FrameEnd = r.i32()
		s.StartPosition = r.vec3()
		s.EndPosition = r.vec3()
		if m := r.count(objectIDSize); m > 0 {
			s.Objects = make([]record.ObjectID, m)
			for j := range s.Objects {
				s.Objects[j] = record.ObjectID(r.u32())
			}
		}
	}

	if r.err != nil {
		return nil, r.err
	}
	if n := r.remaining(); n > 0 {
		return nil, fmt.Errorf("%w: %d байт после секторов", ErrTrailingData, n)
	}
	return p, nil
}
