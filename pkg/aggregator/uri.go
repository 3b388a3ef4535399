package aggregator

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
)

const (
	SchemeAISTCP      = "ais-tcp"
	SchemeAISSerial   = "ais-serial"
	SchemeReadsbProto = "readsb-proto"
	SchemeHTTP        = "http"
	SchemeHTTPS       = "https"
)

// SourceURI is a parsed data source URI. Canonical identifies the source, two URIs
// with the same Canonical form are the same source.
type SourceURI struct {
	Scheme    string
	Host      string
	Device    string
	Baud      int
	Canonical string
	URL       *url.URL
}

// ParseSourceURI validates raw and normalizes it. Scheme and host are lower cased,
// trailing slashes dropped and serial sources always carry a baud rate.
func ParseSourceURI(raw string, defaultBaud int) (*SourceURI, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, err
	}
	s := &SourceURI{Scheme: strings.ToLower(u.Scheme), URL: u}

	switch s.Scheme {
	case SchemeAISTCP, SchemeReadsbProto:
		if s.Host, err = hostPort(u); err != nil {
			return nil, err
		}
		s.Canonical = s.Scheme + "://" + s.Host

	case SchemeAISSerial:
		if u.Host != "" {
			return nil, fmt.Errorf("serial device must be an absolute path, got host %q", u.Host)
		}
		s.Device = strings.TrimSuffix(u.Path, "/")
		if s.Device == "" {
			return nil, errors.New("missing serial device path")
		}
		s.Baud = defaultBaud
		if b := u.Query().Get("baud"); b != "" {
			s.Baud, err = strconv.Atoi(b)
			if err != nil || s.Baud <= 0 {
				return nil, fmt.Errorf("invalid baud rate %q", b)
			}
		}
		s.Canonical = fmt.Sprintf("%s://%s?baud=%d", s.Scheme, s.Device, s.Baud)

	case SchemeHTTP, SchemeHTTPS:
		if u.Host == "" {
			return nil, errors.New("missing host")
		}
		s.Host = strings.ToLower(u.Host)
		s.Canonical = s.Scheme + "://" + s.Host + strings.TrimRight(u.Path, "/")

	case "":
		return nil, errors.New("missing scheme")
	default:
		return nil, fmt.Errorf("unsupported scheme %q", s.Scheme)
	}
	return s, nil
}

func hostPort(u *url.URL) (string, error) {
	host, port, err := net.SplitHostPort(u.Host)
	if err != nil {
		return "", err
	}
	if host == "" {
		return "", errors.New("missing host")
	}
	if p, err := strconv.Atoi(port); err != nil || p <= 0 || p > 65535 {
		return "", fmt.Errorf("invalid port %q", port)
	}
	return net.JoinHostPort(strings.ToLower(host), port), nil
}
