package domain

import "time"

// DateLayout 接口与配置中的日期格式
const DateLayout = "2006-01-02"

// Date 构造 UTC 零点日期
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// TruncateDay 去掉时分秒，统一为 UTC 零点
func TruncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return Date(y, m, d)
}

func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, s, time.UTC)
}

// MaxDate 取较晚的日期
func MaxDate(a, b time.Time) time.Time {
	if b.After(a) {
		return b
	}
	return a
}

// Clock 提供“今天”，测试中可固定
type Clock interface {
	Today() time.Time
}

type SystemClock struct{}

func (SystemClock) Today() time.Time {
	return TruncateDay(time.Now().UTC())
}

type FixedClock struct {
	Day time.Time
}

func (c FixedClock) Today() time.Time {
	return TruncateDay(c.Day)
}
