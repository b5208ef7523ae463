package catalogue

import (
	"context"
	"encoding/binary"
	"fmt"

	"github.com/ecmwf/gribjump/pkg/accessor"
	"github.com/ecmwf/gribjump/pkg/block"
)

// fields are the catalogue-relevant identifiers pulled out of one GRIB2
// message: the discipline (section 0), the reference date/time
// (section 1), and the parameter category/number (section 4, template
// 4.0 only -- the overwhelmingly common case for gridded forecast
// fields). Anything else -- GRIB1, or a GRIB2 product template this
// does not recognise -- yields a zero-value fields, not an error: a
// file the decode path can still extract from should still get a
// catalogue row, just with blank identifying columns.
type fields struct {
	param string
	date  string
	time  string
}

// scanFields reads the message at offset within acc and extracts its
// catalogue fields. It duplicates a small amount of section-walking
// logic from pkg/jumpinfo rather than importing it, since this parses
// an entirely different set of sections (identification, product
// definition) for an entirely different purpose (cataloguing, not
// decoding); keeping it local matches the spec's note that axis
// discovery lives outside the core.
func scanFields(ctx context.Context, acc accessor.Accessor, offset uint64) (fields, error) {
	header, err := acc.Read(ctx, block.Span{Offset: offset, Size: 16})
	if err != nil {
		return fields{}, fmt.Errorf("catalogue: read header at %d: %w", offset, err)
	}
	if string(header[0:4]) != "GRIB" || header[7] != 2 {
		return fields{}, nil
	}
	discipline := header[6]
	totalLength := binary.BigEndian.Uint64(header[8:16])

	raw, err := acc.Read(ctx, block.Span{Offset: offset, Size: totalLength})
	if err != nil {
		return fields{}, fmt.Errorf("catalogue: read message at %d: %w", offset, err)
	}

	var f fields
	pos := 16
	for pos+5 <= len(raw) {
		if pos+4 <= len(raw) && string(raw[pos:pos+4]) == "7777" {
			break
		}
		length := int(binary.BigEndian.Uint32(raw[pos : pos+4]))
		number := raw[pos+4]
		if length < 5 || pos+length > len(raw) {
			break
		}
		body := raw[pos+5 : pos+length]
		switch number {
		case 1:
			if len(body) >= 13 {
				year := binary.BigEndian.Uint16(body[7:9])
				month, day, hour, minute := body[9], body[10], body[11], body[12]
				f.date = fmt.Sprintf("%04d%02d%02d", year, month, day)
				f.time = fmt.Sprintf("%02d%02d", hour, minute)
			}
		case 4:
			if len(body) >= 6 {
				templateNumber := binary.BigEndian.Uint16(body[2:4])
				if templateNumber == 0 {
					category, number := body[4], body[5]
					f.param = fmt.Sprintf("%d.%d.%d", discipline, category, number)
				}
			}
		}
		pos += length
	}
	return f, nil
}
