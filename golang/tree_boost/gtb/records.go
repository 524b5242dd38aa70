package gtb

import (
	"encoding/json"
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/sbinet/npyio"
	"gonum.org/v1/gonum/mat"
)

type jsonRecord struct {
	Iteration    int       `json:"iteration"`
	Models       []string  `json:"models"`
	Intercept    float64   `json:"intercept"`
	Shrinkage    float64   `json:"shrinkage"`
	Importance   []float64 `json:"importance"`
	OOBErrorRate float32   `json:"oob_error_rate"`
}

//WriteRecords writes the records as an indented JSON array. Models keep their base64 text form.
func WriteRecords(w io.Writer, records []IterationRecord) error {
	dump := make([]jsonRecord, len(records))
	for ind, record := range records {
		dump[ind] = jsonRecord{
			Iteration:    record.Iteration,
			Models:       make([]string, len(record.Models)),
			Intercept:    record.Intercept,
			Shrinkage:    record.Shrinkage,
			Importance:   record.Importance,
			OOBErrorRate: record.OOBErrorRate,
		}
		for q, model := range record.Models {
			dump[ind].Models[q] = string(model)
		}
	}
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return errors.Wrap(encoder.Encode(dump), "write records")
}

//ReadRecords reads the output of WriteRecords.
func ReadRecords(r io.Reader) ([]IterationRecord, error) {
	var dump []jsonRecord
	if err := json.NewDecoder(r).Decode(&dump); err != nil {
		return nil, errors.Wrap(err, "read records")
	}
	records := make([]IterationRecord, len(dump))
	for ind, record := range dump {
		records[ind] = IterationRecord{
			Iteration:    record.Iteration,
			Models:       make([][]byte, len(record.Models)),
			Intercept:    record.Intercept,
			Shrinkage:    record.Shrinkage,
			Importance:   record.Importance,
			OOBErrorRate: record.OOBErrorRate,
		}
		for q, model := range record.Models {
			records[ind].Models[q] = []byte(model)
		}
	}
	return records, nil
}

//SaveRecords stores the records in a JSON file.
func SaveRecords(fileName string, records []IterationRecord) (err error) {
	dest, err := os.Create(fileName)
	if err != nil {
		return errors.Wrapf(err, "can't open file %s to write", fileName)
	}
	defer func() {
		if closeErr := dest.Close(); err == nil {
			err = closeErr
		}
	}()
	return WriteRecords(dest, records)
}

//LoadRecords reads the records stored by SaveRecords.
func LoadRecords(fileName string) ([]IterationRecord, error) {
	source, err := os.Open(fileName)
	if err != nil {
		return nil, errors.Wrap(err, "load records")
	}
	defer source.Close()
	return ReadRecords(source)
}

func writeNpy(fileName string, value *mat.Dense) (err error) {
	dest, err := os.Create(fileName)
	if err != nil {
		return errors.Wrapf(err, "can't open file %s to write", fileName)
	}
	defer func() {
		if closeErr := dest.Close(); err == nil {
			err = closeErr
		}
	}()
	return errors.Wrapf(npyio.Write(dest, value), "write npy %s", fileName)
}

//LearningCurve returns the OOB error rate of every record as a column.
func LearningCurve(records []IterationRecord) *mat.Dense {
	if len(records) == 0 {
		return &mat.Dense{}
	}
	curve := mat.NewDense(len(records), 1, nil)
	for ind, record := range records {
		curve.Set(ind, 0, float64(record.OOBErrorRate))
	}
	return curve
}

//ImportanceMatrix returns the importance vectors of the records, one row per iteration.
func ImportanceMatrix(records []IterationRecord) (*mat.Dense, error) {
	if len(records) == 0 || records[0].NumFeatures() == 0 {
		return &mat.Dense{}, nil
	}
	cols := records[0].NumFeatures()
	importance := mat.NewDense(len(records), cols, nil)
	for ind, record := range records {
		if record.NumFeatures() != cols {
			return nil, errors.Errorf("iteration %d has %d importances, expected %d", record.Iteration, record.NumFeatures(), cols)
		}
		importance.SetRow(ind, record.Importance)
	}
	return importance, nil
}

//DumpLearningCurve writes the OOB learning curve as a npy column.
func DumpLearningCurve(fileName string, records []IterationRecord) error {
	if len(records) == 0 {
		return errors.New("dump learning curve: no records")
	}
	return writeNpy(fileName, LearningCurve(records))
}

//DumpImportance writes the iterations x features importance matrix as npy.
func DumpImportance(fileName string, records []IterationRecord) error {
	importance, err := ImportanceMatrix(records)
	if err != nil {
		return errors.Wrap(err, "dump importance")
	}
	if importance.IsEmpty() {
		return errors.New("dump importance: no records")
	}
	return writeNpy(fileName, importance)
}
