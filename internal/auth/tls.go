package auth

import (
	"context"
	"crypto/tls"
	"fmt"

	"github.com/spiffe/go-spiffe/v2/spiffeid"
	"github.com/spiffe/go-spiffe/v2/spiffetls/tlsconfig"
	"github.com/spiffe/go-spiffe/v2/workloadapi"
)

// TLSSource is a server mTLS configuration backed by the SPIFFE Workload
// API. Close releases the underlying X509Source.
type TLSSource struct {
	Config *tls.Config
	source *workloadapi.X509Source
}

// NewServerTLS fetches the server SVID from the Workload API at socketPath
// and builds an mTLS config that accepts clients from trustDomain, or any
// client with a valid SVID when trustDomain is empty.
func NewServerTLS(ctx context.Context, socketPath, trustDomain string) (*TLSSource, error) {
	authorizer := tlsconfig.AuthorizeAny()
	if trustDomain != "" {
		td, err := spiffeid.TrustDomainFromString(trustDomain)
		if err != nil {
			return nil, fmt.Errorf("invalid trust domain: %w", err)
		}
		authorizer = tlsconfig.AuthorizeMemberOf(td)
	}

	var opts []workloadapi.X509SourceOption
	if socketPath != "" {
		opts = append(opts, workloadapi.WithClientOptions(workloadapi.WithAddr(socketPath)))
	}
	source, err := workloadapi.NewX509Source(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create X509Source: %w", err)
	}

	return &TLSSource{
		Config: tlsconfig.MTLSServerConfig(source, source, authorizer),
		source: source,
	}, nil
}

func (s *TLSSource) Close() error {
	if s.source == nil {
		return nil
	}
	return s.source.Close()
}
