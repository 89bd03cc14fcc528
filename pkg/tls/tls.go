package tls

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"fmt"
	"math/big"
	"net"
	"time"
)

const (
	DefaultCommonName = "SecretChat Gateway"
	DefaultValidity   = 28 * 24 * time.Hour
)

type CertOptions struct {
	CommonName string
	Hosts      []string
	Validity   time.Duration
}

func (o *CertOptions) defaults() {
	if o.CommonName == "" {
		o.CommonName = DefaultCommonName
	}
	if len(o.Hosts) == 0 {
		o.Hosts = []string{"localhost", "127.0.0.1", "::1"}
	}
	if o.Validity <= 0 {
		o.Validity = DefaultValidity
	}
}

func certTemplate(options CertOptions) (*x509.Certificate, error) {
	serialNumberLimit := new(big.Int).Lsh(big.NewInt(1), 128)
	if serialNumber, err := rand.Int(rand.Reader, serialNumberLimit); err != nil {
		return nil, fmt.Errorf("failed to generate serial number: %w", err)
	} else {
		now := time.Now()
		tmpl := x509.Certificate{
			SerialNumber:          serialNumber,
			Subject:               pkix.Name{CommonName: options.CommonName},
			NotBefore:             now.Add(-time.Minute),
			NotAfter:              now.Add(options.Validity),
			BasicConstraintsValid: true,
		}

		for _, h := range options.Hosts {
			if ip := net.ParseIP(h); ip != nil {
				tmpl.IPAddresses = append(tmpl.IPAddresses, ip)
			} else {
				tmpl.DNSNames = append(tmpl.DNSNames, h)
			}
		}

		return &tmpl, nil
	}
}

func createCert(template, parent *x509.Certificate, pub any, parentPriv any) (*x509.Certificate, []byte, error) {
	if certDER, err := x509.CreateCertificate(rand.Reader, template, parent, pub, parentPriv); err != nil {
		return nil, nil, err
	} else if cert, err := x509.ParseCertificate(certDER); err != nil {
		return nil, nil, err
	} else {
		return cert, pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: certDER}), nil
	}
}

// CreateServerCert issues a throwaway root and a server certificate signed by
// it. The root key is discarded, so clients must skip verification or pin the
// leaf.
func CreateServerCert(options CertOptions) (tls.Certificate, error) {
	options.defaults()

	rootKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("generating root key: %w", err)
	}

	rootTmpl, err := certTemplate(options)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("creating cert template: %w", err)
	}
	rootTmpl.Subject.CommonName = options.CommonName + " Root"
	rootTmpl.IsCA = true
	rootTmpl.KeyUsage = x509.KeyUsageCertSign | x509.KeyUsageDigitalSignature

	rootCert, _, err := createCert(rootTmpl, rootTmpl, &rootKey.PublicKey, rootKey)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("error creating root cert: %w", err)
	}

	servKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("generating server key: %w", err)
	}

	servTmpl, err := certTemplate(options)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("creating cert template: %w", err)
	}
	servTmpl.KeyUsage = x509.KeyUsageDigitalSignature
	servTmpl.ExtKeyUsage = []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth}

	_, servCertPEM, err := createCert(servTmpl, rootCert, &servKey.PublicKey, rootKey)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("error creating server cert: %w", err)
	}

	servKeyDER, err := x509.MarshalECPrivateKey(servKey)
	if err != nil {
		return tls.Certificate{}, err
	}
	servKeyPEM := pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: servKeyDER})

	if cert, err := tls.X509KeyPair(servCertPEM, servKeyPEM); err != nil {
		return tls.Certificate{}, fmt.Errorf("invalid key pair: %w", err)
	} else {
		return cert, nil
	}
}
