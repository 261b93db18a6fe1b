// Package compose builds draft and send payloads. Bodies are
// encrypted to the account key for storage; at send time each
// recipient gets a package matching their key availability: an
// end-to-end encrypted one when we hold their public key, a cleartext
// MIME one otherwise.
package compose

import (
	"bytes"
	"fmt"
	"io"
	"net/mail"
	"strings"
	"time"

	gomessage "github.com/emersion/go-message/mail"

	"github.com/sealmail/sealmail/internal/api"
	"github.com/sealmail/sealmail/internal/pgp"
	"github.com/sealmail/sealmail/internal/types"
)

// ContactSource resolves a recipient address to a cached contact, nil
// when unknown.
type ContactSource interface {
	ContactByEmail(email string) (*types.Contact, error)
}

// Builder assembles API payloads from local message state.
type Builder struct {
	keys     *pgp.Keys
	contacts ContactSource
}

// NewBuilder returns a Builder over the unlocked account keys and the
// contact cache.
func NewBuilder(keys *pgp.Keys, contacts ContactSource) *Builder {
	return &Builder{keys: keys, contacts: contacts}
}

// ParseAddresses splits a comma-joined recipient list into wire
// addresses. Malformed entries are kept as bare addresses rather than
// dropped, so a send never silently loses a recipient.
func ParseAddresses(list string) []api.EmailAddress {
	if strings.TrimSpace(list) == "" {
		return nil
	}
	parsed, err := mail.ParseAddressList(list)
	if err != nil {
		var out []api.EmailAddress
		for _, part := range strings.Split(list, ",") {
			if addr := strings.TrimSpace(part); addr != "" {
				out = append(out, api.EmailAddress{Address: addr})
			}
		}
		return out
	}
	out := make([]api.EmailAddress, 0, len(parsed))
	for _, a := range parsed {
		out = append(out, api.EmailAddress{Name: a.Name, Address: a.Address})
	}
	return out
}

// Draft builds the create/update payload for a draft. The plaintext
// body is encrypted to the account key before it leaves the process.
func (b *Builder) Draft(msg *types.Message, plaintext string) (*api.DraftRequest, error) {
	body, err := b.keys.Encrypt(plaintext)
	if err != nil {
		return nil, err
	}
	return &api.DraftRequest{
		Subject:   msg.Subject,
		ToList:    ParseAddresses(msg.ToList),
		CCList:    ParseAddresses(msg.CCList),
		BCCList:   ParseAddresses(msg.BCCList),
		Body:      body,
		AddressID: msg.AddressID,
	}, nil
}

// Packages builds the send request for a draft. Internal recipients
// (a cached contact with a public key) each get the body re-encrypted
// to their key; the remaining recipients share one cleartext MIME
// package.
func (b *Builder) Packages(msg *types.Message, plaintext string) (*api.SendRequest, error) {
	recipients := ParseAddresses(msg.ToList)
	recipients = append(recipients, ParseAddresses(msg.CCList)...)
	recipients = append(recipients, ParseAddresses(msg.BCCList)...)
	if len(recipients) == 0 {
		return nil, fmt.Errorf("message %s has no recipients", msg.ID)
	}

	var packages []api.SendPackage
	var external []string
	for _, r := range recipients {
		contact, err := b.contacts.ContactByEmail(r.Address)
		if err != nil {
			return nil, fmt.Errorf("resolve recipient %s: %w", r.Address, err)
		}
		if contact != nil && contact.PublicKey != "" {
			body, err := b.keys.EncryptTo(plaintext, contact.PublicKey)
			if err != nil {
				return nil, fmt.Errorf("package for %s: %w", r.Address, err)
			}
			packages = append(packages, api.SendPackage{
				Type:      api.PackageInternal,
				Addresses: []string{r.Address},
				Body:      body,
			})
			continue
		}
		external = append(external, r.Address)
	}

	if len(external) > 0 {
		mime, err := externalMIME(msg, plaintext)
		if err != nil {
			return nil, err
		}
		packages = append(packages, api.SendPackage{
			Type:      api.PackageCleartext,
			Addresses: external,
			Body:      mime,
			MIMEType:  "multipart/mixed",
		})
	}
	return &api.SendRequest{Packages: packages}, nil
}

// externalMIME renders the cleartext body as a MIME message for
// recipients outside the encrypted network.
func externalMIME(msg *types.Message, plaintext string) (string, error) {
	var buf bytes.Buffer

	from, err := mail.ParseAddress(msg.Sender)
	if err != nil {
		from = &mail.Address{Address: msg.Sender}
	}

	var h gomessage.Header
	h.SetDate(time.Unix(msg.Time, 0))
	h.SetSubject(msg.Subject)
	h.SetAddressList("From", []*gomessage.Address{{Name: from.Name, Address: from.Address}})
	if to := toAddressList(msg.ToList); len(to) > 0 {
		h.SetAddressList("To", to)
	}
	if cc := toAddressList(msg.CCList); len(cc) > 0 {
		h.SetAddressList("Cc", cc)
	}

	w, err := gomessage.CreateWriter(&buf, h)
	if err != nil {
		return "", fmt.Errorf("create mime writer: %w", err)
	}
	var th gomessage.InlineHeader
	th.SetContentType("text/plain", map[string]string{"charset": "utf-8"})
	tw, err := w.CreateSingleInline(th)
	if err != nil {
		return "", fmt.Errorf("create text part: %w", err)
	}
	if _, err := io.WriteString(tw, plaintext); err != nil {
		return "", fmt.Errorf("write text part: %w", err)
	}
	tw.Close()
	w.Close()
	return buf.String(), nil
}

func toAddressList(list string) []*gomessage.Address {
	parsed := ParseAddresses(list)
	out := make([]*gomessage.Address, 0, len(parsed))
	for _, a := range parsed {
		out = append(out, &gomessage.Address{Name: a.Name, Address: a.Address})
	}
	return out
}
