package ingest

import (
	"fmt"

	"CricketSync/internal/apperr"
)

// RecordError 单条比赛记录不合法。Path 指向出错位置，如 innings[1].overs[3].deliveries[2]
type RecordError struct {
	Source string
	Path   string
	Reason string
}

func (e *RecordError) Error() string {
	switch {
	case e.Source != "" && e.Path != "":
		return fmt.Sprintf("%s: %s: %s", e.Source, e.Path, e.Reason)
	case e.Source != "":
		return fmt.Sprintf("%s: %s", e.Source, e.Reason)
	case e.Path != "":
		return fmt.Sprintf("%s: %s", e.Path, e.Reason)
	}
	return e.Reason
}

func (e *RecordError) ErrorKind() apperr.Kind { return apperr.KindMalformedInput }

func malformed(path, format string, args ...interface{}) *RecordError {
	return &RecordError{Path: path, Reason: fmt.Sprintf(format, args...)}
}
