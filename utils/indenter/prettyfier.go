package indenter

import (
	"fmt"
	"strings"
)

// indenter builds a multi-line rendering of nested structures. Nested
// renderings are indented relative to their parent by re-indenting every line
// they produce, so an indenter carries no shared state and may be used from
// several goroutines.
type indenter struct {
	buf string
}

func Indenter() indenter {
	return indenter{}
}

const unit = "  "

func (indenter) Start(str string) indenter {
	return indenter{buf: str}
}

type stringableString string

func (s stringableString) String() string {
	return string(s)
}

func (i indenter) NestStrings(strs ...string) indenter {
	return i.NestStringsSep("", strs...)
}

func (i indenter) NestStringsSep(sep string, strs ...string) indenter {
	stringers := make([]fmt.Stringer, len(strs))
	for i, v := range strs {
		stringers[i] = stringableString(v)
	}
	return i.NestSep(sep, stringers...)
}

func (i indenter) Nest(strs ...fmt.Stringer) indenter {
	return i.NestSep("", strs...)
}

func (i indenter) NestSep(sep string, strs ...fmt.Stringer) indenter {
	thunks := make([]func() string, len(strs))
	for j, s := range strs {
		thunks[j] = s.String
	}
	return i.NestThunkedSep(sep, thunks...)
}

func (i indenter) NestThunked(strs ...func() string) indenter {
	return i.NestThunkedSep("", strs...)
}

func (i indenter) NestThunkedSep(sep string, strs ...func() string) indenter {
	if len(strs) == 1 {
		i.buf += strs[0]()
		return i
	}

	var sb strings.Builder
	sb.WriteString(i.buf)
	for j, str := range strs {
		sb.WriteString("\n" + unit)
		sb.WriteString(reindent(str()))
		if j < len(strs)-1 {
			sb.WriteString(sep)
		}
	}
	sb.WriteString("\n")
	return indenter{buf: sb.String()}
}

// Append renders str at the nesting level of the caller.
func (indenter) Append(str string) string {
	return unit + str
}

func (i indenter) End(str string) string {
	return i.buf + str
}

func reindent(s string) string {
	return strings.ReplaceAll(s, "\n", "\n"+unit)
}
