package admission

import (
	"sort"

	"stealthcompany.com/hospitalops/internal/warehouse"
)

// Encoder turns one encounter into the fixed feature vector the forest was
// fitted on: the four numerics first, then one-hot blocks for gender, race
// and department id. The vocabularies and imputation defaults are learned
// from the training rows and serialized with the model, so serving applies
// exactly the training-time encoding.
type Encoder struct {
	Genders       []string
	Races         []string
	DepartmentIDs []int64

	// Imputation defaults: medians for numerics, most frequent for
	// categoricals.
	MedianAge        float64
	MedianWait       float64
	ModeGender       string
	ModeRace         string
	ModeDepartmentID int64
}

// NewEncoder learns vocabularies and imputation defaults from labeled rows.
func NewEncoder(rows []warehouse.TrainingRow) *Encoder {
	genderCounts := make(map[string]int)
	raceCounts := make(map[string]int)
	departmentCounts := make(map[int64]int)
	var ages, waits []float64

	for i := range rows {
		r := &rows[i]
		if r.Gender != nil {
			genderCounts[*r.Gender]++
		}
		if r.Race != nil {
			raceCounts[*r.Race]++
		}
		if r.DepartmentID != nil {
			departmentCounts[*r.DepartmentID]++
		}
		if r.Age != nil {
			ages = append(ages, *r.Age)
		}
		if r.WaitTimeMinutes != nil {
			waits = append(waits, *r.WaitTimeMinutes)
		}
	}

	e := &Encoder{
		Genders:       sortedStringKeys(genderCounts),
		Races:         sortedStringKeys(raceCounts),
		DepartmentIDs: sortedInt64Keys(departmentCounts),
		MedianAge:     median(ages),
		MedianWait:    median(waits),
	}
	e.ModeGender = mostFrequentString(genderCounts)
	e.ModeRace = mostFrequentString(raceCounts)
	e.ModeDepartmentID = mostFrequentInt64(departmentCounts)
	return e
}

// NumFeatures returns the encoded vector width.
func (e *Encoder) NumFeatures() int {
	return 4 + len(e.Genders) + len(e.Races) + len(e.DepartmentIDs)
}

// EncodeRow encodes a training row, imputing missing values.
func (e *Encoder) EncodeRow(r *warehouse.TrainingRow) []float64 {
	age := e.MedianAge
	if r.Age != nil {
		age = *r.Age
	}
	wait := e.MedianWait
	if r.WaitTimeMinutes != nil {
		wait = *r.WaitTimeMinutes
	}
	gender := e.ModeGender
	if r.Gender != nil {
		gender = *r.Gender
	}
	race := e.ModeRace
	if r.Race != nil {
		race = *r.Race
	}
	department := e.ModeDepartmentID
	if r.DepartmentID != nil {
		department = *r.DepartmentID
	}
	return e.Encode(age, gender, race, department, float64(r.EventHour), float64(r.EventDayOfWeek), wait)
}

// Encode encodes fully-specified feature values. Categories outside the
// training vocabulary encode to an all-zero one-hot block rather than an
// error, mirroring unknown-ignore behavior at fit time.
func (e *Encoder) Encode(age float64, gender, race string, departmentID int64, eventHour, dayOfWeek, wait float64) []float64 {
	x := make([]float64, 0, e.NumFeatures())
	x = append(x, age, eventHour, dayOfWeek, wait)
	for _, g := range e.Genders {
		x = append(x, oneHot(g == gender))
	}
	for _, r := range e.Races {
		x = append(x, oneHot(r == race))
	}
	for _, d := range e.DepartmentIDs {
		x = append(x, oneHot(d == departmentID))
	}
	return x
}

func oneHot(match bool) float64 {
	if match {
		return 1
	}
	return 0
}

func sortedStringKeys(counts map[string]int) []string {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedInt64Keys(counts map[int64]int) []int64 {
	keys := make([]int64, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

func mostFrequentString(counts map[string]int) string {
	best, bestCount := "", -1
	for _, k := range sortedStringKeys(counts) {
		if counts[k] > bestCount {
			best, bestCount = k, counts[k]
		}
	}
	return best
}

func mostFrequentInt64(counts map[int64]int) int64 {
	var best int64
	bestCount := -1
	for _, k := range sortedInt64Keys(counts) {
		if counts[k] > bestCount {
			best, bestCount = k, counts[k]
		}
	}
	return best
}

func median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}
