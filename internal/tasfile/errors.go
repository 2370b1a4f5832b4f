package tasfile

import (
	"errors"
	"fmt"
)

var (
	// ErrBadMagic файл не является контейнером .tas
	ErrBadMagic = errors.New("неверная сигнатура файла")
	// ErrUnsupportedVersion файл записан более новой версией формата
	ErrUnsupportedVersion = errors.New("неподдерживаемая версия формата")
	// ErrChecksumMismatch CRC32 сжатых данных не совпадает с заголовком
	ErrChecksumMismatch = errors.New("контрольная сумма не совпадает")
	// ErrTruncated данные закончились раньше, чем ожидалось
	ErrTruncated = errors.New("данные обрезаны")
	// ErrTrailingData после разобранных данных остались лишние байты
	ErrTrailingData = errors.New("лишние данные в конце")
)

// FormatError описывает файл, который не удалось разобрать
type FormatError struct {
	Path string
	Err  error
}

func (e *FormatError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("ошибка формата .tas: %v", e.Err)
	}
	return fmt.Sprintf("ошибка формата .tas (%s): %v", e.Path, e.Err)
}

func (e *FormatError) Unwrap() error { return e.Err }

// DecompressionError сжатые данные прошли проверку CRC, но не распаковались
type DecompressionError struct {
	Path string
	Err  error
}

func (e *DecompressionError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("ошибка распаковки: %v", e.Err)
	}
	return fmt.Sprintf("ошибка распаковки (%s): %v", e.Path, e.Err)
}

func (e *DecompressionError) Unwrap() error { return e.Err }

// Reason возвращает короткую метку причины ошибки загрузки (для метрик)
func Reason(err error) string {
	var de *DecompressionError
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrBadMagic):
		return "bad_magic"
	case errors.Is(err, ErrUnsupportedVersion):
		return "version"
	case errors.Is(err, ErrChecksumMismatch):
		return "checksum"
	case errors.Is(err, ErrTruncated):
		return "truncated"
	case errors.Is(err, ErrTrailingData):
		return "trailing"
	case errors.As(err, &de):
		return "decompress"
	default:
		return "io"
	}
}
