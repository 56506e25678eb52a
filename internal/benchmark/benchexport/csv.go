package benchexport

import (
	"cmp"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"reflect"
	"slices"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/streamfold/coldstart-bench/internal/benchmark/stats"
)

// SavedResults is one persisted cold-start sample. Field order is the column
// order of the record store and must not change.
type SavedResults struct {
	BaseName         string  `json:"base_name"`
	Memory           int     `json:"memory"`
	ClientDurationMs float64 `json:"client_duration_ms"`
	InitDurationMs   float64 `json:"init_duration_ms"`
}

// SortByInitDuration orders rows by init duration ascending. Ties keep their
// original order.
func SortByInitDuration(rows []SavedResults) {
	slices.SortStableFunc(rows, func(a, b SavedResults) int {
		return cmp.Compare(a.InitDurationMs, b.InitDurationMs)
	})
}

// ToSamples converts stored rows into aggregator input.
func ToSamples(rows []SavedResults) []stats.Sample {
	samples := make([]stats.Sample, len(rows))
	for i, r := range rows {
		samples[i] = stats.Sample{
			BaseName:         r.BaseName,
			Memory:           r.Memory,
			ClientDurationMs: r.ClientDurationMs,
			InitDurationMs:   r.InitDurationMs,
		}
	}
	return samples
}

// SaveOrAppendToCSV saves a slice of any struct type to a CSV file, using JSON tags for headers.
// - appends the data to the file if it already exists, or creates it if it doesn't exist.
// - writes the header based on the struct tags if the file is empty.
// - never truncates or rewrites existing rows.
func SaveOrAppendToCSV[T any](data []T, filePath string) error {
	file, err := os.OpenFile(filePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return errors.Wrapf(err, "open record store %s", filePath)
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return err
	}

	return writeCSV(file, data, stat.Size() == 0)
}

// WriteCSV writes data with a header row to w.
func WriteCSV[T any](w io.Writer, data []T) error {
	return writeCSV(w, data, true)
}

func writeCSV[T any](w io.Writer, data []T, withHeader bool) error {
	writer := csv.NewWriter(w)

	if withHeader {
		header, err := getHeaderFromStruct(reflect.TypeOf((*T)(nil)).Elem())
		if err != nil {
			return err
		}
		if err = writer.Write(header); err != nil {
			return err
		}
	}

	for _, item := range data {
		row, err := getRowFromStruct(item)
		if err != nil {
			return err
		}
		if err = writer.Write(row); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

// getHeaderFromStruct extracts field names from JSON tags of a struct
func getHeaderFromStruct(t reflect.Type) ([]string, error) {
	var header []string
	for i := 0; i < t.NumField(); i++ {
		tag := t.Field(i).Tag.Get("json")
		if tag == "" || tag == "-" {
			continue
		}
		header = append(header, strings.Split(tag, ",")[0])
	}
	if len(header) == 0 {
		return nil, fmt.Errorf("no valid JSON tags found in struct")
	}
	return header, nil
}

// getRowFromStruct extracts field values from a struct
func getRowFromStruct(item any) ([]string, error) {
	v := reflect.ValueOf(item)
	if v.Kind() == reflect.Ptr {
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return nil, fmt.Errorf("expected struct, got %s", v.Kind())
	}
	t := v.Type()

	var row []string
	for i := 0; i < v.NumField(); i++ {
		tag := t.Field(i).Tag.Get("json")
		if tag == "" || tag == "-" {
			continue
		}
		field := v.Field(i)
		switch field.Kind() {
		case reflect.Float32, reflect.Float64:
			row = append(row, strconv.FormatFloat(field.Float(), 'f', -1, 64))
		default:
			row = append(row, fmt.Sprintf("%v", field.Interface()))
		}
	}
	return row, nil
}

// LoadCSV loads a slice of any struct type from a CSV file, using JSON tags for fields.
// - gets the header from the first line of the CSV file, maps the header to the struct fields.
// - header cells are trimmed, so `base_name, memory` style headers load too.
// - returns the slice of structs.
func LoadCSV[T any](reader io.Reader) ([]T, error) {
	csvReader := csv.NewReader(reader)
	csvReader.TrimLeadingSpace = true
	records, err := csvReader.ReadAll()
	if err != nil {
		return nil, err
	}

	if len(records) < 1 {
		return nil, fmt.Errorf("CSV file is empty")
	}

	header := records[0]
	records = records[1:]

	headerMap := make(map[string]int)
	for i, h := range header {
		headerMap[strings.TrimSpace(h)] = i
	}

	t := reflect.TypeOf((*T)(nil)).Elem()
	data := make([]T, 0, len(records))

	for line, record := range records {
		item := reflect.New(t).Elem()

		for i := 0; i < t.NumField(); i++ {
			field := t.Field(i)
			tag := field.Tag.Get("json")
			if tag == "" || tag == "-" {
				continue
			}
			tagName := strings.Split(tag, ",")[0]

			if index, ok := headerMap[tagName]; ok && index < len(record) {
				if err := setField(item.Field(i), strings.TrimSpace(record[index])); err != nil {
					return nil, errors.Wrapf(err, "line %d: error setting field %s", line+2, field.Name)
				}
			}
		}

		data = append(data, item.Interface().(T))
	}

	return data, nil
}

// setField sets the value of a struct field based on its type
func setField(field reflect.Value, value string) error {
	switch field.Kind() {
	case reflect.String:
		field.SetString(value)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		intValue, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return err
		}
		field.SetInt(intValue)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		uintValue, err := strconv.ParseUint(value, 10, 64)
		if err != nil {
			return err
		}
		field.SetUint(uintValue)
	case reflect.Float32, reflect.Float64:
		floatValue, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		field.SetFloat(floatValue)
	case reflect.Bool:
		boolValue, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(boolValue)
	default:
		return fmt.Errorf("unsupported field type: %v", field.Kind())
	}

	return nil
}
