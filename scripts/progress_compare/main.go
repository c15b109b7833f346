package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/caraka20/tutontrack/internal/dto"
	"github.com/caraka20/tutontrack/internal/tuton"
)

type comparison struct {
	StudentID      int64
	LegacyStatus   int
	GoStatus       int
	StatusMatch    bool
	Diffs          []string
	Error          error
	DurationGo     time.Duration
	DurationLegacy time.Duration
}

func (c comparison) ok() bool {
	return c.Error == nil && c.StatusMatch && len(c.Diffs) == 0
}

func main() {
	var (
		goBase     string
		legacyBase string
		students   string
		token      string
		window     int
		timeout    time.Duration
		dueSoon    bool
	)

	flag.StringVar(&goBase, "go-base", "http://localhost:8080/api/v1", "Go API base URL")
	flag.StringVar(&legacyBase, "legacy-base", "http://localhost:3000/api", "Legacy API base URL")
	flag.StringVar(&students, "students", "", "Comma separated student IDs")
	flag.StringVar(&token, "token", os.Getenv("COMPARE_TOKEN"), "Bearer token sent to both APIs")
	flag.IntVar(&window, "window", 7, "Due-soon window in days")
	flag.DurationVar(&timeout, "timeout", 5*time.Second, "HTTP client timeout")
	flag.BoolVar(&dueSoon, "due-soon", false, "Also compare the flattened due-soon list")
	flag.Parse()

	ids, err := parseIDs(students)
	if err != nil {
		log.Fatalf("invalid -students: %v", err)
	}

	client := &http.Client{Timeout: timeout}
	results := make([]comparison, 0, len(ids))
	failed := 0
	for _, id := range ids {
		res := compareStudent(client, goBase, legacyBase, token, id, window)
		if !res.ok() {
			failed++
		}
		results = append(results, res)
		if !dueSoon {
			continue
		}
		rows := compareDueSoon(client, goBase, legacyBase, token, id, window)
		if !rows.ok() {
			failed++
		}
		results = append(results, rows)
	}

	printReport(os.Stdout, results)
	fmt.Printf("Students compared: %d, mismatched: %d\n", len(results), failed)
	if failed > 0 {
		os.Exit(1)
	}
}

func parseIDs(raw string) ([]int64, error) {
	parts := strings.Split(raw, ",")
	ids := make([]int64, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("bad student id %q", part)
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return nil, errors.New("no student ids given")
	}
	return ids, nil
}

func compareStudent(client *http.Client, goBase, legacyBase, token string, studentID int64, window int) comparison {
	comp := comparison{StudentID: studentID}
	path := fmt.Sprintf("/students/%d/progress?windowDays=%d", studentID, window)

	goStatus, goBody, goDur, goErr := fetch(client, goBase, path, token)
	legacyStatus, legacyBody, legacyDur, legacyErr := fetch(client, legacyBase, path, token)
	comp.DurationGo = goDur
	comp.DurationLegacy = legacyDur

	if goErr != nil {
		comp.Error = fmt.Errorf("go request failed: %w", goErr)
		return comp
	}
	if legacyErr != nil {
		comp.Error = fmt.Errorf("legacy request failed: %w", legacyErr)
		return comp
	}

	comp.GoStatus = goStatus
	comp.LegacyStatus = legacyStatus
	comp.StatusMatch = goStatus == legacyStatus
	if goStatus != http.StatusOK || legacyStatus != http.StatusOK {
		return comp
	}

	comp.Diffs = diffProgress(
		tuton.NormalizeStudentProgress(legacyBody),
		tuton.NormalizeStudentProgress(goBody),
	)
	return comp
}

// compareDueSoon diffs the flattened due-soon list, undated rows included.
func compareDueSoon(client *http.Client, goBase, legacyBase, token string, studentID int64, window int) comparison {
	comp := comparison{StudentID: studentID}
	path := fmt.Sprintf("/students/%d/due-soon?windowDays=%d&includeUndated=true", studentID, window)

	goStatus, goBody, goDur, goErr := fetch(client, goBase, path, token)
	legacyStatus, legacyBody, legacyDur, legacyErr := fetch(client, legacyBase, path, token)
	comp.DurationGo = goDur
	comp.DurationLegacy = legacyDur

	if goErr != nil {
		comp.Error = fmt.Errorf("go due-soon request failed: %w", goErr)
		return comp
	}
	if legacyErr != nil {
		comp.Error = fmt.Errorf("legacy due-soon request failed: %w", legacyErr)
		return comp
	}

	comp.GoStatus = goStatus
	comp.LegacyStatus = legacyStatus
	comp.StatusMatch = goStatus == legacyStatus
	if goStatus != http.StatusOK || legacyStatus != http.StatusOK {
		return comp
	}

	comp.Diffs = diffDueSoonRows(
		tuton.NormalizeDueSoonRows(legacyBody),
		tuton.NormalizeDueSoonRows(goBody),
	)
	return comp
}

func fetch(client *http.Client, base, path, token string) (int, []byte, time.Duration, error) {
	if client == nil {
		return 0, nil, 0, errors.New("nil client")
	}
	req, err := http.NewRequest(http.MethodGet, strings.TrimRight(base, "/")+path, nil)
	if err != nil {
		return 0, nil, 0, err
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		return 0, nil, 0, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, time.Since(start), fmt.Errorf("read body: %w", err)
	}
	return resp.StatusCode, body, time.Since(start), nil
}

// diffProgress lists field level differences between two normalized aggregates.
// Enrollments are matched by id; lastUpdated is ignored.
func diffProgress(legacy, current dto.StudentProgress) []string {
	var diffs []string
	if legacy.Summary != current.Summary {
		diffs = append(diffs, fmt.Sprintf("summary: legacy=%+v go=%+v", legacy.Summary, current.Summary))
	}

	byID := make(map[int64]dto.ProgressSummary, len(current.Items))
	for _, item := range current.Items {
		byID[item.EnrollmentID] = item
	}
	for _, want := range legacy.Items {
		got, ok := byID[want.EnrollmentID]
		if !ok {
			diffs = append(diffs, fmt.Sprintf("enrollment %d: missing in go", want.EnrollmentID))
			continue
		}
		delete(byID, want.EnrollmentID)
		diffs = append(diffs, diffSummary(want, got)...)
	}
	for id := range byID {
		diffs = append(diffs, fmt.Sprintf("enrollment %d: missing in legacy", id))
	}
	return diffs
}

func diffSummary(want, got dto.ProgressSummary) []string {
	var diffs []string
	check := func(field string, a, b interface{}) {
		if !reflect.DeepEqual(a, b) {
			diffs = append(diffs, fmt.Sprintf("enrollment %d %s: legacy=%v go=%v", want.EnrollmentID, field, a, b))
		}
	}
	check("total", want.Total, got.Total)
	check("selesai", want.Selesai, got.Selesai)
	check("progressPct", want.ProgressPct, got.ProgressPct)
	check("overdue", want.Overdue, got.Overdue)
	check("dueSoon", dueSoonIDs(want.DueSoon), dueSoonIDs(got.DueSoon))
	return diffs
}

func dueSoonIDs(items []dto.DueSoonItem) []int64 {
	ids := make([]int64, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ItemID)
	}
	return ids
}

// diffDueSoonRows compares row order by item id and the days left per item.
func diffDueSoonRows(legacy, current []dto.DueSoonRow) []string {
	var diffs []string
	order := func(rows []dto.DueSoonRow) []int64 {
		ids := make([]int64, 0, len(rows))
		for _, row := range rows {
			ids = append(ids, row.ItemID)
		}
		return ids
	}
	if a, b := order(legacy), order(current); !reflect.DeepEqual(a, b) {
		diffs = append(diffs, fmt.Sprintf("due-soon order: legacy=%v go=%v", a, b))
	}

	byID := make(map[int64]dto.DueSoonRow, len(current))
	for _, row := range current {
		byID[row.ItemID] = row
	}
	for _, want := range legacy {
		got, ok := byID[want.ItemID]
		if !ok {
			continue
		}
		if a, b := daysLeft(want), daysLeft(got); a != b {
			diffs = append(diffs, fmt.Sprintf("item %d daysLeft: legacy=%s go=%s", want.ItemID, a, b))
		}
	}
	return diffs
}

func daysLeft(row dto.DueSoonRow) string {
	if row.DaysLeft == nil {
		return "none"
	}
	return strconv.Itoa(*row.DaysLeft)
}

func printReport(w io.Writer, results []comparison) {
	fmt.Fprintln(w, "Progress Compare Report")
	fmt.Fprintln(w, "=======================")
	for _, res := range results {
		status := "OK"
		if res.Error != nil {
			status = "ERROR"
		} else if !res.ok() {
			status = "DIFF"
		}
		fmt.Fprintf(w, "[%s] student %d\n", status, res.StudentID)
		fmt.Fprintf(w, "  Go Status: %d (%s)\n", res.GoStatus, res.DurationGo)
		fmt.Fprintf(w, "  Legacy Status: %d (%s)\n", res.LegacyStatus, res.DurationLegacy)
		if res.Error != nil {
			fmt.Fprintf(w, "  Error: %v\n", res.Error)
			continue
		}
		for _, diff := range res.Diffs {
			fmt.Fprintf(w, "  - %s\n", diff)
		}
	}
}
