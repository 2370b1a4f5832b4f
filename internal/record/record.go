package record

import "strings"

// Flag биты поля flags заголовка файла
type Flag uint32

const (
	// FlagNonDeterministic запись сделана без нормализатора случайности,
	// точность воспроизведения не гарантируется
	FlagNonDeterministic Flag = 1 << 0
	// FlagZstd полезная нагрузка сжата zstd вместо zlib
	FlagZstd Flag = 1 << 1
)

// Record последовательность кадров и секторов с курсорами.
//
// Инвариант: 0 <= frameIndex <= len(frames). Record не потокобезопасен:
// им владеет либо поток тиков, либо задача сохранения, но не оба сразу.
type Record struct {
	name    string
	path    string
	mapName string
	legacy  bool
	loaded  bool
	flags   Flag

	frames      []Frame
	frameIndex  int
	sectors     []Sector
	sectorIndex int
}

// New создаёт пустую запись
func New(name, path string, legacy bool) *Record {
	return &Record{name: name, path: path, legacy: legacy}
}

func (r *Record) Name() string           { return r.name }
func (r *Record) SetName(name string)    { r.name = name }
func (r *Record) Path() string           { return r.path }
func (r *Record) SetPath(path string)    { r.path = path }
func (r *Record) MapName() string        { return r.mapName }
func (r *Record) SetMapName(name string) { r.mapName = name }
func (r *Record) IsLegacy() bool         { return r.legacy }
func (r *Record) SetLegacy(legacy bool)  { r.legacy = legacy }
func (r *Record) IsLoaded() bool         { return r.loaded }
func (r *Record) Flags() Flag            { return r.flags }
func (r *Record) SetFlags(flags Flag)    { r.flags = flags }
func (r *Record) HasFlag(flag Flag) bool { return r.flags&flag != 0 }
func (r *Record) AddFlag(flag Flag)      { r.flags |= flag }

// Less упорядочивает записи по имени (для списка записей)
func (r *Record) Less(other *Record) bool {
	return strings.Compare(r.name, other.name) < 0
}

// === Кадры ===

// IsPlaying курсор ещё не дошёл до конца
func (r *Record) IsPlaying() bool { return r.frameIndex < len(r.frames) }

// IsFinished курсор ровно на конце; читать кадры дальше нельзя
func (r *Record) IsFinished() bool { return r.frameIndex == len(r.frames) }

func (r *Record) FrameCount() int { return len(r.frames) }
func (r *Record) FrameIndex() int { return r.frameIndex }

// CurrentFrame возвращает кадр под курсором; false, если курсор на конце
func (r *Record) CurrentFrame() (*Frame, bool) {
	if r.frameIndex < 0 || r.frameIndex >= len(r.frames) {
		return nil, false
	}
	return &r.frames[r.frameIndex], true
}

// Frame возвращает кадр по индексу
func (r *Record) Frame(i int) (Frame, bool) {
	if i < 0 || i >= len(r.frames) {
		return Frame{}, false
	}
	return r.frames[i], true
}

// Frames возвращает срез кадров (без копирования)
func (r *Record) Frames() []Frame { return r.frames }

// NextFrame сдвигает курсор вперёд, не дальше конца
func (r *Record) NextFrame() {
	if r.frameIndex < len(r.frames) {
		r.frameIndex++
	}
}

// PrevFrame сдвигает курсор назад, не раньше нуля
func (r *Record) PrevFrame() {
	if r.frameIndex > 0 {
		r.frameIndex--
	}
}

// ResetFrame ставит курсор на первый кадр
func (r *Record) ResetFrame() { r.frameIndex = 0 }

// NewFrame добавляет кадр. Курсор не двигается на первом кадре и сдвигается
// на каждом следующем, так что он всегда указывает на последний записанный кадр.
func (r *Record) NewFrame(frame Frame) {
	if len(r.frames) > 0 {
		r.frameIndex++
	}
	r.frames = append(r.frames, frame)
}

// === Секторы ===

func (r *Record) SectorCount() int  { return len(r.sectors) }
func (r *Record) SectorIndex() int  { return r.sectorIndex }
func (r *Record) Sectors() []Sector { return r.sectors }
func (r *Record) ResetSector()      { r.sectorIndex = 0 }

// CurrentSector возвращает сектор под курсором
func (r *Record) CurrentSector() (*Sector, bool) {
	if r.sectorIndex < 0 || r.sectorIndex >= len(r.sectors) {
		return nil, false
	}
	return &r.sectors[r.sectorIndex], true
}

// NextSector сдвигает курсор секторов вперёд
func (r *Record) NextSector() {
	if r.sectorIndex < len(r.sectors) {
		r.sectorIndex++
	}
}

// PrevSector сдвигает курсор секторов назад
func (r *Record) PrevSector() {
	if r.sectorIndex > 0 {
		r.sectorIndex--
	}
}

// NewSector добавляет сектор с FrameStart = текущему курсору кадров.
// ID назначается по порядку, начиная с 1.
func (r *Record) NewSector() *Sector {
	if len(r.sectors) > 0 {
		r.sectorIndex++
	}
	r.sectors = append(r.sectors, Sector{
		ID:         int32(len(r.sectors) + 1),
		FrameStart: int32(r.frameIndex),
	})
	return &r.sectors[len(r.sectors)-1]
}

// === Загрузка и очистка ===

// Assign заменяет содержимое записи загруженными данными и помечает её загруженной.
// Используется только кодеком после успешного разбора файла.
func (r *Record) Assign(mapName string, flags Flag, frames []Frame, sectors []Sector) {
	r.mapName = mapName
	r.flags = flags
	r.frames = frames
	r.sectors = sectors
	r.frameIndex = 0
	r.sectorIndex = 0
	r.loaded = true
}

// Clear освобождает кадры и секторы и сбрасывает признак загрузки
func (r *Record) Clear() {
	r.loaded = false
	r.frameIndex = 0
	r.frames = nil
	r.sectorIndex = 0
	r.sectors = nil
}

// Detach передаёт содержимое новой записи и очищает текущую.
// После вызова поток тиков больше не обращается к возвращённой записи.
func (r *Record) Detach() *Record {
	out := &Record{
		name:        r.name,
		path:        r.path,
		mapName:     r.mapName,
		legacy:      r.legacy,
		loaded:      r.loaded,
		flags:       r.flags,
		frames:      r.frames,
		frameIndex:  r.frameIndex,
		sectors:     r.sectors,
		sectorIndex: r.sectorIndex,
	}
	r.Clear()
	r.flags = 0
	return out
}
