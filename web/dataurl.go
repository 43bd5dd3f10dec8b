// ABOUTME: Parser for data URLs carrying staged attachments in comment posts
// ABOUTME: Recovers media type, file name and decoded bytes
package web

import (
	"encoding/base64"
	"errors"
	"net/url"
	"strings"

	"github.com/harperreed/leadopp/db"
)

var errBadDataURL = errors.New("malformed data URL")

// parseDataURL decodes "data:<type>[;param=v]*[;base64],<payload>".
func parseDataURL(ref string) (db.NewFile, error) {
	rest, ok := strings.CutPrefix(ref, "data:")
	if !ok {
		return db.NewFile{}, errBadDataURL
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return db.NewFile{}, errBadDataURL
	}

	f := db.NewFile{Name: "attachment", ContentType: "text/plain;charset=US-ASCII"}
	parts := strings.Split(meta, ";")
	isBase64 := false
	var typ []string
	for i, p := range parts {
		p = strings.TrimSpace(p)
		switch {
		case i == len(parts)-1 && p == "base64":
			isBase64 = true
		case strings.HasPrefix(p, "name="):
			if name, err := url.PathUnescape(strings.TrimPrefix(p, "name=")); err == nil && name != "" {
				f.Name = name
			}
		case p != "":
			typ = append(typ, p)
		}
	}
	if len(typ) > 0 {
		f.ContentType = strings.Join(typ, "; ")
	}

	if isBase64 {
		data, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			return db.NewFile{}, errBadDataURL
		}
		f.Data = data
		return f, nil
	}
	data, err := url.PathUnescape(payload)
	if err != nil {
		return db.NewFile{}, errBadDataURL
	}
	f.Data = []byte(data)
	return f, nil
}
