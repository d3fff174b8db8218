package solar

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestEncode(t *testing.T) {
	records := []Record{
		{FileName: "sky-0.png", Altitude: -20, Azimuth: 90, IsPrimary: true},
		{FileName: "sky-100.png", Altitude: -20, Azimuth: 270},
	}

	var buf bytes.Buffer
	if err := Encode(&buf, records); err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	out := buf.String()

	if strings.Count(out, "isPrimary") != 1 {
		t.Errorf("isPrimary must appear only on the primary record:\n%s", out)
	}
	if strings.Index(out, "sky-0.png") > strings.Index(out, "sky-100.png") {
		t.Errorf("Record order not preserved:\n%s", out)
	}

	var raw []map[string]any
	if err := json.Unmarshal(buf.Bytes(), &raw); err != nil {
		t.Fatalf("Output is not a JSON array: %v", err)
	}
	for _, key := range []string{"fileName", "altitude", "azimuth", "isPrimary"} {
		if _, ok := raw[0][key]; !ok {
			t.Errorf("Missing key %q in %v", key, raw[0])
		}
	}

	t.Logf("Encoded config:\n%s", out)
}

func TestWriteConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	records := []Record{
		{FileName: "sky-0.png", Altitude: -20, Azimuth: 90, IsPrimary: true},
		{FileName: "sky-50.png", Altitude: 45, Azimuth: 90},
	}

	if err := WriteConfig(path, records); err != nil {
		t.Fatalf("WriteConfig failed: %v", err)
	}

	read, err := ReadConfig(path)
	if err != nil {
		t.Fatalf("ReadConfig failed: %v", err)
	}
	if len(read) != 2 || read[1] != records[1] || !read[0].IsPrimary {
		t.Errorf("Unexpected records after reading back: %+v", read)
	}

	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Errorf("Temporary files left behind: %v", entries)
	}
}

func TestWriteConfigEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")

	if err := WriteConfig(path, nil); !errors.Is(err, ErrInvalidConfiguration) {
		t.Errorf("Expected ErrInvalidConfiguration, got %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("No file should be written for empty records")
	}
}
