package dataset_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"hanzibee/internal/dataset"
	"hanzibee/internal/model"
)

func TestSampleFilesAreConsistent(t *testing.T) {
	t.Parallel()

	files := dataset.SampleFiles()
	master := dataset.SampleMasterConfig()

	if _, ok := files[dataset.MasterConfigFile]; !ok {
		t.Fatal("missing master config file")
	}
	if _, ok := files[dataset.IndexConfigFile]; !ok {
		t.Fatal("missing index config file")
	}

	total := 0
	for _, entry := range master.Categories {
		data, ok := files[entry.File]
		if !ok {
			t.Fatalf("missing shard file %s", entry.File)
		}
		var shard []model.HanziCharacter
		if err := json.Unmarshal(data, &shard); err != nil {
			t.Fatalf("shard %s not valid JSON: %v", entry.File, err)
		}
		if len(shard) != entry.Count {
			t.Fatalf("shard %s declares %d characters, holds %d", entry.File, entry.Count, len(shard))
		}
		total += len(shard)
	}
	if total != master.TotalCharacters {
		t.Fatalf("totalCharacters declares %d, shards hold %d", master.TotalCharacters, total)
	}
}

func TestSampleIndexCoversAllCharacters(t *testing.T) {
	t.Parallel()

	index := dataset.SampleIndexConfig()
	for _, hanzi := range dataset.SampleCharacters() {
		entry, ok := index.CharacterIndex[hanzi.Character]
		if !ok {
			t.Fatalf("character %q missing from index", hanzi.Character)
		}
		if entry.ID != hanzi.ID || entry.Category != hanzi.Category {
			t.Fatalf("index entry mismatch for %q: %+v", hanzi.Character, entry)
		}
	}
}

func TestSampleHandlerServesFiles(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(dataset.SampleHandler())
	t.Cleanup(server.Close)

	resp, err := http.Get(server.URL + "/" + dataset.MasterConfigFile)
	if err != nil {
		t.Fatalf("GET master config: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var master model.MasterConfig
	if err := json.NewDecoder(resp.Body).Decode(&master); err != nil {
		t.Fatalf("decode master config: %v", err)
	}
	if master.TotalCharacters != 5 {
		t.Fatalf("unexpected master config: %+v", master)
	}

	missing, err := http.Get(server.URL + "/no-such-file.json")
	if err != nil {
		t.Fatalf("GET missing file: %v", err)
	}
	defer missing.Body.Close()
	if missing.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown file, got %d", missing.StatusCode)
	}
}
