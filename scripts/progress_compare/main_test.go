package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const goPayload = `{"data":{"studentId":7,"items":[
	{"enrollmentId":1,"courseId":3,"courseName":"Statistika","total":8,"selesai":3,"progressPct":38,"overdue":1,"dueSoon":[{"itemId":11,"jenis":"TUGAS","sesi":3,"deadlineAt":"2024-05-03T00:00:00Z","daysLeft":2}]}
],"summary":{"courses":1,"totalItems":8,"totalSelesai":3,"avgProgressPct":38,"overdue":1}}}`

// legacyPayload carries the same numbers in snake_case without a summary block.
const legacyPayload = `{"data":{"items":[
	{"enrollment_id":"1","course_id":3,"course_name":"Statistika","total_items":8,"done":3,"overdue":1,"due_soon":[{"item_id":11,"type":"tugas","session":3,"deadline":"2024-05-03","days_left":2}]}
]}}`

func serveJSON(status int, body string) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer t0k" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
}

func TestCompareStudentNormalizesBothShapes(t *testing.T) {
	goSrv := serveJSON(http.StatusOK, goPayload)
	defer goSrv.Close()
	legacySrv := serveJSON(http.StatusOK, legacyPayload)
	defer legacySrv.Close()

	res := compareStudent(&http.Client{Timeout: time.Second}, goSrv.URL, legacySrv.URL, "t0k", 7, 7)
	require.NoError(t, res.Error)
	assert.True(t, res.StatusMatch)
	assert.Empty(t, res.Diffs)
	assert.True(t, res.ok())
}

func TestCompareStudentReportsDifferences(t *testing.T) {
	drifted := `{"data":{"items":[{"enrollmentId":1,"total":8,"selesai":4,"overdue":1,"dueSoon":[]},{"enrollmentId":2,"total":1,"selesai":0}]}}`
	goSrv := serveJSON(http.StatusOK, drifted)
	defer goSrv.Close()
	legacySrv := serveJSON(http.StatusOK, legacyPayload)
	defer legacySrv.Close()

	res := compareStudent(&http.Client{Timeout: time.Second}, goSrv.URL, legacySrv.URL, "t0k", 7, 7)
	require.NoError(t, res.Error)
	assert.False(t, res.ok())
	assert.Contains(t, res.Diffs, "enrollment 1 selesai: legacy=3 go=4")
	assert.Contains(t, res.Diffs, "enrollment 1 progressPct: legacy=38 go=50")
	assert.Contains(t, res.Diffs, "enrollment 2: missing in legacy")

	var out bytes.Buffer
	printReport(&out, []comparison{res})
	assert.Contains(t, out.String(), "[DIFF] student 7")
}

func TestCompareStudentStatusMismatch(t *testing.T) {
	goSrv := serveJSON(http.StatusNotFound, `{"error":{"code":"NOT_FOUND"}}`)
	defer goSrv.Close()
	legacySrv := serveJSON(http.StatusOK, legacyPayload)
	defer legacySrv.Close()

	res := compareStudent(&http.Client{Timeout: time.Second}, goSrv.URL, legacySrv.URL, "t0k", 7, 7)
	require.NoError(t, res.Error)
	assert.False(t, res.StatusMatch)
	assert.Nil(t, res.Diffs)
}

func TestCompareDueSoonRows(t *testing.T) {
	goSrv := serveJSON(http.StatusOK, `{"data":[
		{"enrollmentId":1,"itemId":11,"jenis":"TUGAS","sesi":3,"deadlineAt":"2024-05-03T00:00:00Z","daysLeft":2},
		{"enrollmentId":1,"itemId":12,"jenis":"DISKUSI","sesi":1,"deadlineAt":null,"daysLeft":null}
	]}`)
	defer goSrv.Close()
	legacySrv := serveJSON(http.StatusOK, `{"rows":[
		{"enrollment_id":1,"item_id":11,"type":"tugas","session":3,"deadline":"2024-05-03","days_left":1},
		{"enrollment_id":1,"item_id":12,"type":"diskusi","session":1}
	]}`)
	defer legacySrv.Close()

	res := compareDueSoon(&http.Client{Timeout: time.Second}, goSrv.URL, legacySrv.URL, "t0k", 7, 7)
	require.NoError(t, res.Error)
	assert.True(t, res.StatusMatch)
	assert.Equal(t, []string{"item 11 daysLeft: legacy=1 go=2"}, res.Diffs)
}

func TestParseIDs(t *testing.T) {
	ids, err := parseIDs(" 7, 8,,9 ")
	require.NoError(t, err)
	assert.Equal(t, []int64{7, 8, 9}, ids)

	_, err = parseIDs("")
	assert.Error(t, err)
	_, err = parseIDs("7,x")
	assert.Error(t, err)
}
