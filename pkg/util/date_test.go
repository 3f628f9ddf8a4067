package util

import (
    "strconv"
    "testing"
    "time"
)

func TestParseTimeRFC3339(t *testing.T) {
    s := "2024-10-10T10:10:10Z"
    got, ok := ParseTime(s)
    if !ok {
        t.Fatalf("expected ok")
    }
    if got.UTC().Format(time.RFC3339) != s {
        t.Fatalf("unexpected time %v", got)
    }
}

func TestParseTimeUnix(t *testing.T) {
    ts := time.Date(2024, 10, 10, 10, 10, 10, 0, time.UTC).Unix()
    got, ok := ParseTime(strconv.FormatInt(ts, 10))
    if !ok {
        t.Fatalf("expected ok")
    }
    if got.Unix() != ts {
        t.Fatalf("unexpected unix %v", got.Unix())
    }
}

func TestParseTimeDefault(t *testing.T) {
    def := time.Date(2024, 10, 10, 10, 10, 10, 0, time.UTC)
    got := ParseTimeDefault("", def)
    if !got.Equal(def) {
        t.Fatalf("expected default")
    }
}

func TestParseClock(t *testing.T) {
    cases := map[string]int{"00:00": 0, "09:00": 540, "16:00": 960, "23:59": 1439}
    for in, want := range cases {
        got, err := ParseClock(in)
        if err != nil {
            t.Fatalf("%s: unexpected error %v", in, err)
        }
        if got != want {
            t.Fatalf("%s: got %d want %d", in, got, want)
        }
    }
    for _, bad := range []string{"", "9", "24:00", "12:60", "ab:cd"} {
        if _, err := ParseClock(bad); err == nil {
            t.Fatalf("%q: expected error", bad)
        }
    }
}

func TestFormatClockWraps(t *testing.T) {
    if got := FormatClock(1440 + 61); got != "01:01" {
        t.Fatalf("unexpected %s", got)
    }
    if got := FormatClock(-60); got != "23:00" {
        t.Fatalf("unexpected %s", got)
    }
}

func TestDurationLabel(t *testing.T) {
    if got := DurationLabel(125); got != "2h 5m" {
        t.Fatalf("unexpected %s", got)
    }
    if got := DurationLabel(-3); got != "0h 0m" {
        t.Fatalf("unexpected %s", got)
    }
}
