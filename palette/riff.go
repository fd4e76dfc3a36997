package palette

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"golang.org/x/image/riff"
)

/*
typedef struct tagLOGPALETTE {
  WORD         palVersion;
  WORD         palNumEntries;
  PALETTEENTRY palPalEntry[1];
} LOGPALETTE;

typedef struct tagPALETTEENTRY {
  BYTE peRed;
  BYTE peGreen;
  BYTE peBlue;
  BYTE peFlags;
} PALETTEENTRY;
*/

var (
	riffType = riff.FourCC{'R', 'I', 'F', 'F'}
	palType  = riff.FourCC{'P', 'A', 'L', ' '}
	dataType = riff.FourCC{'d', 'a', 't', 'a'}
)

// maxChunkColors is the most entries palNumEntries can count.
const maxChunkColors = math.MaxUint16

// WritePAL stores colors as a RIFF PAL document. Palettes larger than a
// single chunk can describe are split over several consecutive chunks.
func WritePAL(w io.Writer, colors []Color) (int64, error) {
	var chunks [][]Color
	for rest := colors; len(chunks) == 0 || len(rest) > 0; {
		n := min(len(rest), maxChunkColors)
		chunks = append(chunks, rest[:n])
		rest = rest[n:]
	}

	docSize := 4 // form type
	for _, chunk := range chunks {
		docSize += 8 + 4 + len(chunk)*4 // chunk header + palVersion + palNumEntries + 4 bytes/color
	}

	header := make([]byte, 0, 12)
	header = append(header, riffType[:]...)
	header = binary.LittleEndian.AppendUint32(header, uint32(docSize))
	header = append(header, palType[:]...)
	if err := writeBytes(w, header); err != nil {
		return 0, fmt.Errorf("could not write PAL header: %w", err)
	}

	var count int64
	for i, chunk := range chunks {
		if err := writePalette(w, chunk); err != nil {
			return count, fmt.Errorf("could not write chunk %d: %w", i, err)
		}
		count += int64(len(chunk))
	}

	return count, nil
}

func writePalette(w io.Writer, colors []Color) error {
	buf := make([]byte, 0, 8+4+len(colors)*4)
	buf = append(buf, dataType[:]...)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(4+len(colors)*4))
	buf = append(buf, 0x00, 0x03)
	buf = binary.LittleEndian.AppendUint16(buf, uint16(len(colors)))
	for _, c := range colors {
		buf = append(buf, c.R, c.G, c.B, 0x00)
	}

	if err := writeBytes(w, buf); err != nil {
		return fmt.Errorf("could not write %d palette entries: %w", len(colors), err)
	}
	return nil
}

// ReadPAL loads every palette chunk of a RIFF PAL document, concatenated in
// file order.
func ReadPAL(r io.Reader) ([]Color, error) {
	formType, rd, err := riff.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("could not open RIFF stream: %w", err)
	} else if formType != palType {
		return nil, fmt.Errorf("unsupported RIFF content type: %s", string(formType[:]))
	}

	var res []Color
	for i := 0; ; i++ {
		id, _, data, err := rd.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return res, fmt.Errorf("could not read chunk #%d: %w", i, err)
		}

		if id != dataType {
			return res, fmt.Errorf("unsupported chunk type in #%d: %s", i, string(id[:]))
		}

		colors, err := readPalette(data, i)
		res = append(res, colors...)
		if err != nil {
			return res, err
		}
	}

	return res, nil
}

func readPalette(r io.Reader, chunk int) ([]Color, error) {
	buf := make([]byte, 4)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, fmt.Errorf("could not read header of chunk #%d: %w", chunk, err)
	}

	if ver := binary.BigEndian.Uint16(buf); ver != 3 {
		return nil, fmt.Errorf("unsupported palette version in chunk #%d: %d", chunk, ver)
	}

	count := int(binary.LittleEndian.Uint16(buf[2:]))
	res := make([]Color, 0, count)
	for i := range count {
		if _, err := io.ReadFull(r, buf); err != nil {
			return res, fmt.Errorf("could not read color %d/%d from chunk #%d: %w", i, count, chunk, err)
		}
		res = append(res, Color{R: buf[0], G: buf[1], B: buf[2]})
	}

	return res, nil
}

func writeBytes(w io.Writer, b []byte) error {
	n, err := w.Write(b)
	if err != nil {
		return err
	} else if n != len(b) {
		return fmt.Errorf("wrote only %d/%d bytes", n, len(b))
	}

	return nil
}
