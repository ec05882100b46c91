/*****************************************************************************************************************/

//	@package	github.com/stellarforge/platesolve

/*****************************************************************************************************************/

// Package loader is a thin CLI convenience for turning a raw exposure on disk into the
// pixel.Buffer the engine consumes. Decoding a real observatory image format is explicitly
// out of scope here - this reads only the plain binary PGM (netpbm P5) grayscale format, at
// 8 or 16 bits per sample, which is enough to exercise the CLI against a sample frame
// without pulling in a FITS or RAW decoder.
package loader

/*****************************************************************************************************************/

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/stellarforge/platesolve/pkg/pixel"
)

/*****************************************************************************************************************/

// LoadPGM reads a binary PGM (P5) file at path into a pixel.Buffer, copying 8-bit and
// 16-bit samples into the buffer's float32 plane unchanged, without rescaling (the rest of
// the pipeline works in whatever ADU-like units the samples already carry).
func LoadPGM(path string) (*pixel.Buffer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("loader: opening %s: %w", path, err)
	}
	defer f.Close()

	reader := bufio.NewReader(f)

	magic, err := readToken(reader)
	if err != nil {
		return nil, fmt.Errorf("loader: reading magic number: %w", err)
	}

	if magic != "P5" {
		return nil, fmt.Errorf("loader: unsupported PGM magic number %q, only binary P5 is supported", magic)
	}

	width, err := readIntToken(reader)
	if err != nil {
		return nil, fmt.Errorf("loader: reading width: %w", err)
	}

	height, err := readIntToken(reader)
	if err != nil {
		return nil, fmt.Errorf("loader: reading height: %w", err)
	}

	maxVal, err := readIntToken(reader)
	if err != nil {
		return nil, fmt.Errorf("loader: reading maxval: %w", err)
	}

	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("loader: invalid PGM dimensions %dx%d", width, height)
	}

	samples := make([]float32, width*height)

	sampleType := pixel.SampleU8

	if maxVal > 255 {
		sampleType = pixel.SampleU16

		raw := make([]byte, width*height*2)
		if _, err := io.ReadFull(reader, raw); err != nil {
			return nil, fmt.Errorf("loader: reading 16-bit sample plane: %w", err)
		}

		for i := range samples {
			samples[i] = float32(uint16(raw[2*i])<<8 | uint16(raw[2*i+1]))
		}
	} else {
		raw := make([]byte, width*height)
		if _, err := io.ReadFull(reader, raw); err != nil {
			return nil, fmt.Errorf("loader: reading 8-bit sample plane: %w", err)
		}

		for i, b := range raw {
			samples[i] = float32(b)
		}
	}

	buf, err := pixel.NewBuffer(samples, width, height)
	if err != nil {
		return nil, err
	}

	buf.SampleType = sampleType

	return buf, nil
}

/*****************************************************************************************************************/

// readToken reads one whitespace-delimited token from r, skipping '#' comment lines the
// way the PGM header format allows between fields.
func readToken(r *bufio.Reader) (string, error) {
	var token []byte

	for {
		b, err := r.ReadByte()
		if err != nil {
			return "", err
		}

		if b == '#' {
			if _, err := r.ReadString('\n'); err != nil {
				return "", err
			}

			continue
		}

		if isPGMSpace(b) {
			if len(token) == 0 {
				continue
			}

			return string(token), nil
		}

		token = append(token, b)
	}
}

/*****************************************************************************************************************/

func readIntToken(r *bufio.Reader) (int, error) {
	token, err := readToken(r)
	if err != nil {
		return 0, err
	}

	return strconv.Atoi(token)
}

/*****************************************************************************************************************/

func isPGMSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}

/*****************************************************************************************************************/
