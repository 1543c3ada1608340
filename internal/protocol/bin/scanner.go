package bin

import (
	"bufio"
	"fmt"
	"io"

	"github.com/maekitalo/sertools/internal/protocol/compose"
	"github.com/maekitalo/sertools/internal/xdrutil"
)

// replyState names are kept identical to original_source/src/bin/scanner.h
// (state_0, state_value, state_errorcode, state_errormessage, state_end).
// ReadReply records which step it is in, but it reads off a blocking
// bufio.Reader rather than being driven byte-by-byte by a caller, so a reply
// is not resumable part-way through.
type replyState int

const (
	state_0 replyState = iota
	state_value
	state_errorcode
	state_errormessage
	state_end
)

// Scanner decodes one RPC reply frame (§4.2.1): a leading marker byte
// (rpcReplyValue or rpcReplyError) followed by either a single binary
// value or an error code and message.
type Scanner struct {
	r      *bufio.Reader
	parser *Parser
	state  replyState
}

func NewScanner(r io.Reader) *Scanner {
	br := bufio.NewReader(r)
	return &Scanner{r: br, parser: newParserOnBuffered(br)}
}

// ReadReply blocks until a full reply frame has arrived, then either drives
// c with the decoded value and returns nil, or returns a *RemoteError
// carrying the server's reported failure.
func (s *Scanner) ReadReply(c compose.Composer) error {
	s.state = state_0
	marker, err := s.r.ReadByte()
	if err != nil {
		return err
	}
	switch marker {
	case rpcReplyValue:
		s.state = state_value
		if err := s.parser.ParseValue(c); err != nil {
			return err
		}
		term, err := s.r.ReadByte()
		if err != nil {
			return err
		}
		if term != stringTerminator {
			return newParseError(0, "expected reply terminator %#x, got %#x", stringTerminator, term)
		}
		s.state = state_end
		return nil
	case rpcReplyError:
		s.state = state_errorcode
		code, err := s.readErrorCode()
		if err != nil {
			return err
		}
		s.state = state_errormessage
		msg, err := s.readErrorMessage()
		if err != nil {
			return err
		}
		s.state = state_end
		return &RemoteError{Code: code, Message: msg}
	default:
		return newParseError(0, "unrecognized reply frame marker %#x", marker)
	}
}

// readErrorCode reads the 4-byte big-endian application error code.
func (s *Scanner) readErrorCode() (int32, error) {
	return xdrutil.ReadInt32(s.r)
}

// readErrorMessage reads the error message text, terminated by `\x00` then
// `\xff` (§4.1: same two-byte terminator convention as a String scalar
// payload).
func (s *Scanner) readErrorMessage() (string, error) {
	var out []byte
	for {
		b, err := s.r.ReadByte()
		if err != nil {
			return "", err
		}
		if b == nameTerminator {
			term, err := s.r.ReadByte()
			if err != nil {
				return "", err
			}
			if term != stringTerminator {
				return "", newParseError(0, "expected %#x after error message, got %#x", stringTerminator, term)
			}
			return string(out), nil
		}
		out = append(out, b)
	}
}

// RemoteError reports an application-level failure the server chose to
// report, as opposed to a transport/decoding failure (spec §7: "RemoteError
// vs IOError vs LogicError are distinct").
type RemoteError struct {
	Code    int32
	Message string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("rpc: remote error %d: %s", e.Code, e.Message)
}

// WriteRequest writes one RPC request frame (§4.2.1): a marker (with or
// without a domain), the method name, and the argument value, written by
// calling formatArgs against a fresh Formatter.
func WriteRequest(w io.Writer, domain, method string, formatArgs func(*Formatter) error) error {
	f := NewFormatter(w)
	marker := byte(rpcNoDomain)
	if domain != "" {
		marker = rpcWithDomain
	}
	if err := f.w.WriteByte(marker); err != nil {
		return err
	}
	if domain != "" {
		if _, err := f.w.WriteString(domain); err != nil {
			return err
		}
		if err := f.w.WriteByte(nameTerminator); err != nil {
			return err
		}
	}
	if _, err := f.w.WriteString(method); err != nil {
		return err
	}
	if err := f.w.WriteByte(nameTerminator); err != nil {
		return err
	}
	if err := formatArgs(f); err != nil {
		return err
	}
	if err := f.w.WriteByte(stringTerminator); err != nil {
		return err
	}
	return f.Flush()
}

// WriteValueReply writes a successful `\x41` reply frame (§8 scenario 6):
// the marker followed by one formatted value.
func WriteValueReply(w io.Writer, formatValue func(*Formatter) error) error {
	f := NewFormatter(w)
	if err := f.w.WriteByte(rpcReplyValue); err != nil {
		return err
	}
	if err := formatValue(f); err != nil {
		return err
	}
	if err := f.w.WriteByte(stringTerminator); err != nil {
		return err
	}
	return f.Flush()
}

// WriteErrorReply writes a `\x42` error reply frame (§8 scenario 7): the
// marker, a 4-byte big-endian error code, and a message terminated by
// `\x00` then `\xff`.
func WriteErrorReply(w io.Writer, code int32, message string) error {
	bw := bufio.NewWriter(w)
	if err := bw.WriteByte(rpcReplyError); err != nil {
		return err
	}
	if err := xdrutil.WriteInt32(bw, code); err != nil {
		return err
	}
	if _, err := bw.WriteString(message); err != nil {
		return err
	}
	if err := bw.WriteByte(nameTerminator); err != nil {
		return err
	}
	if err := bw.WriteByte(stringTerminator); err != nil {
		return err
	}
	return bw.Flush()
}
