package model

import (
	"strconv"
	"time"
)

// DateLayout: 활동 날짜 저장 형식 (UTC 달력 날짜)
const DateLayout = "2006-01-02"

// DateString: 시각을 UTC 달력 날짜 문자열로 변환한다.
func DateString(t time.Time) string {
	return t.UTC().Format(DateLayout)
}

// ParseDate: 날짜 문자열을 UTC 자정 시각으로 변환한다.
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, s, time.UTC)
}

// DaysBetween: from 에서 to 까지의 달력 일수 차이.
func DaysBetween(from, to time.Time) int {
	f := time.Date(from.UTC().Year(), from.UTC().Month(), from.UTC().Day(), 0, 0, 0, 0, time.UTC)
	t := time.Date(to.UTC().Year(), to.UTC().Month(), to.UTC().Day(), 0, 0, 0, 0, time.UTC)
	return int(t.Sub(f).Hours() / 24)
}

// StartOfDay: UTC 기준 해당 날짜의 자정
func StartOfDay(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

func itoa(v int) string { return strconv.Itoa(v) }
