package signer

import "github.com/jrschumacher/rpkica/internal/resources"

// CertifiedKey is a minimal, concrete implementation of
// aspa.CertifiedKey sufficient for a single resource class's worth of
// ASPA object issuance: a key identifier, the ASN resources the
// certificate covers, and the publication URIs derived from it.
type CertifiedKey struct {
	ID          string
	ResourceSet resources.Set
	CRL         string
	CAIssuer    string
	SubjectName string
	BaseURI     string
}

func (k CertifiedKey) KeyID() string                 { return k.ID }
func (k CertifiedKey) Resources() resources.Set      { return k.ResourceSet }
func (k CertifiedKey) CRLURI() string                { return k.CRL }
func (k CertifiedKey) CAIssuerURI() string           { return k.CAIssuer }
func (k CertifiedKey) Subject() string               { return k.SubjectName }
func (k CertifiedKey) URIForName(name string) string { return k.BaseURI + "/" + name }
