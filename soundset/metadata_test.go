package soundset

import (
	"fmt"
	"strings"
	"testing"
)

const testMetadata = `slice_file_name,fsID,start,end,salience,fold,classID,class
100032-3-0-0.wav,100032,0,0.317551,1,5,3,dog_bark
100263-2-0-117.wav,100263,58.5,62.5,1,5,2,children_playing
101415-3-0-2.wav,101415,1,5,1,1,3,dog_bark
102305-6-0-0.wav,102305,0,2.61,1,10,6,gun_shot
`

func TestReadMetadata(t *testing.T) {
	meta, err := ReadMetadata(strings.NewReader(testMetadata))
	if err != nil {
		t.Fatal(err)
	}
	if meta.Len() != 4 {
		t.Fatalf("expected 4 records but got %d", meta.Len())
	}
	expected := Record{
		FileName:  "100263-2-0-117.wav",
		Fold:      5,
		Label:     2,
		ClassName: "children_playing",
	}
	if meta.Records[1] != expected {
		t.Errorf("expected %v but got %v", expected, meta.Records[1])
	}
	folds := meta.Folds()
	if len(folds) != 3 || folds[0] != 5 || folds[1] != 1 || folds[2] != 10 {
		t.Errorf("unexpected folds: %v", folds)
	}
	names := meta.ClassNames()
	if names[3] != "dog_bark" || names[6] != "gun_shot" || names[0] != "" {
		t.Errorf("unexpected class names: %v", names)
	}
}

func TestReadMetadataNoHeader(t *testing.T) {
	data := "a.wav,1,0,1,1,2,9\nb.wav,1,0,1,1,3,0\n"
	meta, err := ReadMetadata(strings.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	if meta.Len() != 2 {
		t.Fatalf("expected 2 records but got %d", meta.Len())
	}
	if meta.Records[0].Label != 9 || meta.Records[0].ClassName != "" {
		t.Errorf("unexpected record: %v", meta.Records[0])
	}
}

func TestReadMetadataErrors(t *testing.T) {
	inputs := map[string]string{
		"short row":     "a.wav,1,0,1,1,2\n",
		"bad label":     "a.wav,1,0,1,1,2,10,x\n",
		"negative":      "a.wav,1,0,1,1,2,-1,x\n",
		"bad fold":      "a.wav,1,0,1,1,2,3,x\nb.wav,1,0,1,1,two,3,x\n",
		"missing label": "a.wav,1,0,1,1,2,,x\n",
		"empty name":    ",1,0,1,1,2,3,x\n",
	}
	for name, input := range inputs {
		if _, err := ReadMetadata(strings.NewReader(input)); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestNewDatasetFolds(t *testing.T) {
	meta := &Metadata{
		Records: []Record{
			{FileName: "x.wav", Fold: 1, Label: 3},
			{FileName: "y.wav", Fold: 2, Label: 5},
		},
	}
	d := NewDataset(meta, "/data", []int{1})
	if d.Len() != 1 {
		t.Fatalf("expected 1 clip but got %d", d.Len())
	}
	if d.Record(0).Label != 3 {
		t.Errorf("expected label 3 but got %d", d.Record(0).Label)
	}
	if d.Path(0) != "/data/fold1/x.wav" {
		t.Errorf("unexpected path: %s", d.Path(0))
	}
	if d.WaveformLength() != 32000 {
		t.Errorf("unexpected waveform length: %d", d.WaveformLength())
	}

	if NewDataset(meta, "/data", nil).Len() != 0 {
		t.Error("expected empty dataset")
	}
	if NewDataset(meta, "/data", []int{1, 2, 3}).Len() != 2 {
		t.Error("expected both clips")
	}
}

func TestNewDatasetFoldSubsets(t *testing.T) {
	meta := &Metadata{}
	for i := 0; i < 137; i++ {
		meta.Records = append(meta.Records, Record{
			FileName: fmt.Sprintf("%d.wav", i),
			Fold:     1 + (i*7+i/10)%10,
			Label:    i % 10,
		})
	}
	for mask := 0; mask < 1<<10; mask++ {
		var folds []int
		for f := 1; f <= 10; f++ {
			if mask&(1<<uint(f-1)) != 0 {
				folds = append(folds, f)
			}
		}
		var expected []string
		for _, r := range meta.Records {
			if mask&(1<<uint(r.Fold-1)) != 0 {
				expected = append(expected, r.FileName)
			}
		}
		d := NewDataset(meta, "/data", folds)
		if d.Len() != len(expected) {
			t.Fatalf("folds %v: expected %d clips but got %d", folds, len(expected), d.Len())
		}
		for i, name := range expected {
			if d.Record(i).FileName != name {
				t.Fatalf("folds %v: clip %d should be %s but got %s", folds, i,
					name, d.Record(i).FileName)
			}
		}
	}
}
