// Copyright 2026 otakudb Project Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package base

import (
	"bufio"
	"io"
	"strings"

	"github.com/juju/errors"
)

const maxLineSize = 16 * 1024 * 1024

// ReadLines parses fields of each record of a csv stream. Quoted fields may
// contain separators, doubled quotes and line breaks. A quote only opens a
// quoted field at the start of the field and is literal elsewhere. The handler receives the
// zero-based record number and stops the scan by returning an error. Blank
// lines are skipped.
func ReadLines(r io.Reader, sep rune, handler func(int, []string) error) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	lineCount := 0               // record number of current position
	fields := make([]string, 0)  // fields for current record
	builder := strings.Builder{} // string builder for current field
	quoted := false              // whether current position in quote
	fieldStart := true           // whether nothing of current field is read
	for sc.Scan() {
		line := []rune(strings.TrimSuffix(sc.Text(), "\r"))
		// skip blank lines
		if !quoted && len(line) == 0 {
			continue
		}
		// continuation of a quoted field
		if quoted {
			builder.WriteRune('\n')
		}
		for i := 0; i < len(line); i++ {
			if line[i] == sep && !quoted {
				// end of field
				fields = append(fields, builder.String())
				builder.Reset()
				fieldStart = true
			} else if line[i] == '"' && (quoted || fieldStart) {
				fieldStart = false
				if quoted {
					if i+1 >= len(line) || line[i+1] != '"' {
						// end of quoted
						quoted = false
					} else {
						i++
						builder.WriteRune('"')
					}
				} else {
					// start of quoted
					quoted = true
				}
			} else {
				builder.WriteRune(line[i])
				fieldStart = false
			}
		}
		// end of record
		if !quoted {
			fields = append(fields, builder.String())
			builder.Reset()
			if err := handler(lineCount, fields); err != nil {
				return err
			}
			fields = make([]string, 0, len(fields))
			fieldStart = true
			lineCount++
		}
	}
	if err := sc.Err(); err != nil {
		return errors.Trace(err)
	}
	if quoted {
		return errors.Errorf("unterminated quoted field in record %d", lineCount)
	}
	return nil
}
