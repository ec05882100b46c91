/*****************************************************************************************************************/

//	@package	github.com/stellarforge/platesolve

/*****************************************************************************************************************/

package loader

/*****************************************************************************************************************/

import (
	"os"
	"path/filepath"
	"testing"
)

/*****************************************************************************************************************/

func writePGM(t *testing.T, path string, width, height, maxVal int, samples []uint16) {
	t.Helper()

	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	defer f.Close()

	header := []byte("P5\n")
	header = append(header, []byte(itoa(width)+" "+itoa(height)+"\n")...)
	header = append(header, []byte(itoa(maxVal)+"\n")...)

	if _, err := f.Write(header); err != nil {
		t.Fatalf("write header: %v", err)
	}

	if maxVal > 255 {
		for _, s := range samples {
			if _, err := f.Write([]byte{byte(s >> 8), byte(s)}); err != nil {
				t.Fatalf("write sample: %v", err)
			}
		}
	} else {
		for _, s := range samples {
			if _, err := f.Write([]byte{byte(s)}); err != nil {
				t.Fatalf("write sample: %v", err)
			}
		}
	}
}

/*****************************************************************************************************************/

func itoa(v int) string {
	if v == 0 {
		return "0"
	}

	neg := v < 0
	if neg {
		v = -v
	}

	var digits []byte
	for v > 0 {
		digits = append([]byte{byte('0' + v%10)}, digits...)
		v /= 10
	}

	if neg {
		return "-" + string(digits)
	}

	return string(digits)
}

/*****************************************************************************************************************/

func TestLoadPGMDecodes16BitSamples(t *testing.T) {
	path := filepath.Join(t.TempDir(), "frame.pgm")

	writePGM(t, path, 2, 2, 65535, []uint16{0, 1000, 2000, 65535})

	buf, err := LoadPGM(path)
	if err != nil {
		t.Fatalf("LoadPGM: %v", err)
	}

	if buf.Width != 2 || buf.Height != 2 {
		t.Fatalf("Expected a 2x2 buffer, Got=%dx%d", buf.Width, buf.Height)
	}

	if buf.At(1, 0) != 1000 {
		t.Errorf("Expected sample (1,0)=1000, Got=%v", buf.At(1, 0))
	}

	if buf.At(1, 1) != 65535 {
		t.Errorf("Expected sample (1,1)=65535, Got=%v", buf.At(1, 1))
	}
}

/*****************************************************************************************************************/

func TestLoadPGMDecodes8BitSamples(t *testing.T) {
	path := filepath.Join(t.TempDir(), "frame.pgm")

	writePGM(t, path, 3, 1, 255, []uint16{10, 128, 255})

	buf, err := LoadPGM(path)
	if err != nil {
		t.Fatalf("LoadPGM: %v", err)
	}

	if buf.At(2, 0) != 255 {
		t.Errorf("Expected sample (2,0)=255, Got=%v", buf.At(2, 0))
	}
}

/*****************************************************************************************************************/

func TestLoadPGMRejectsWrongMagicNumber(t *testing.T) {
	path := filepath.Join(t.TempDir(), "frame.pgm")

	if err := os.WriteFile(path, []byte("P2\n2 2\n255\n0 1 2 3\n"), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	if _, err := LoadPGM(path); err == nil {
		t.Fatalf("Expected an error for an unsupported ASCII PGM magic number")
	}
}

/*****************************************************************************************************************/
