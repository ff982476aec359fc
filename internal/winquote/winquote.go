// Package winquote encodes argument lists into a single command line using
// the quoting convention expected by the Windows process loader (the
// "backslashes are special only before a quote" rules shared by
// CommandLineToArgvW and the Microsoft C runtime). It also provides the
// inverse Split, a reference re-splitter used to verify round-trips on
// platforms where the native parser is unavailable.
package winquote

import "strings"

// Join encodes args into one command line. Re-splitting the result with the
// Windows parser yields args element-for-element.
func Join(args []string) string {
	var b []byte
	for i, arg := range args {
		if i > 0 {
			b = append(b, ' ')
		}
		b = appendArg(b, arg)
	}
	return string(b)
}

func appendArg(b []byte, arg string) []byte {
	// An empty argument would vanish entirely unless quoted.
	if arg == "" {
		return append(b, '"', '"')
	}
	if !strings.ContainsAny(arg, " \t\"") {
		return append(b, arg...)
	}
	b = append(b, '"')
	slashes := 0
	for i := 0; i < len(arg); i++ {
		switch c := arg[i]; c {
		case '\\':
			slashes++
			b = append(b, '\\')
		case '"':
			// Double every pending backslash so it survives the parser,
			// then escape the quote itself.
			for ; slashes > 0; slashes-- {
				b = append(b, '\\')
			}
			b = append(b, '\\', '"')
		default:
			slashes = 0
			b = append(b, c)
		}
	}
	// Trailing backslashes would otherwise swallow the closing quote.
	for ; slashes > 0; slashes-- {
		b = append(b, '\\')
	}
	return append(b, '"')
}

// Split re-parses a command line into its argument list following the same
// convention Join targets: 2n backslashes before a quote collapse to n, 2n+1
// collapse to n plus a literal quote, and backslashes anywhere else are
// literal. Whitespace outside quotes separates arguments.
func Split(cmdline string) []string {
	var (
		args    []string
		cur     []byte
		inQuote bool
		hasArg  bool
	)
	for i := 0; i < len(cmdline); i++ {
		c := cmdline[i]
		switch {
		case c == '\\':
			n := 0
			for i < len(cmdline) && cmdline[i] == '\\' {
				n++
				i++
			}
			if i < len(cmdline) && cmdline[i] == '"' {
				cur = append(cur, strings.Repeat(`\`, n/2)...)
				if n%2 == 1 {
					cur = append(cur, '"')
				} else {
					i-- // reprocess the quote as a delimiter
				}
			} else {
				cur = append(cur, strings.Repeat(`\`, n)...)
				i--
			}
			hasArg = true
		case c == '"':
			inQuote = !inQuote
			hasArg = true
		case (c == ' ' || c == '\t') && !inQuote:
			if hasArg {
				args = append(args, string(cur))
				cur = cur[:0]
				hasArg = false
			}
		default:
			cur = append(cur, c)
			hasArg = true
		}
	}
	if hasArg {
		args = append(args, string(cur))
	}
	return args
}
