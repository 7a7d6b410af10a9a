package types

import "time"

// Timestamp is a number of milliseconds since the unix epoch.
type Timestamp uint64

// Now returns the current Timestamp.
func Now() Timestamp {
	return TimestampFromTime(time.Now())
}

// TimestampFromTime converts t to a Timestamp.
func TimestampFromTime(t time.Time) Timestamp {
	return Timestamp(t.UnixNano() / int64(time.Millisecond))
}

// Time converts the Timestamp back into a time.Time in UTC.
func (t Timestamp) Time() time.Time {
	return time.Unix(0, int64(t)*int64(time.Millisecond)).UTC()
}

// Add returns t+d, saturating at zero.
func (t Timestamp) Add(d time.Duration) Timestamp {
	ms := int64(d / time.Millisecond)
	if ms < 0 && uint64(-ms) > uint64(t) {
		return 0
	}
	return Timestamp(int64(t) + ms)
}

// Sub returns the duration t-o.
func (t Timestamp) Sub(o Timestamp) time.Duration {
	return time.Duration(int64(t)-int64(o)) * time.Millisecond
}

// String ...
func (t Timestamp) String() string {
	return t.Time().Format(time.RFC3339Nano)
}
