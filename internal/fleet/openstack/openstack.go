// Package openstack implements fleet.Provider on top of OpenStack Nova.
//
// Credentials come from the standard OS_* environment variables. One compute
// client is built per configured region and cached for the process lifetime.
package openstack

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/gophercloud/gophercloud/v2"
	"github.com/gophercloud/gophercloud/v2/openstack"
	"github.com/gophercloud/gophercloud/v2/openstack/compute/v2/servers"

	"powerctl/internal/fleet"
	logx "powerctl/pkg/logx"
)

type Provider struct {
	log      logx.Logger
	provider *gophercloud.ProviderClient

	mu      sync.Mutex
	compute map[string]*gophercloud.ServiceClient
}

// New authenticates against Keystone using the OS_* environment.
func New(ctx context.Context, log logx.Logger) (*Provider, error) {
	if log.IsZero() {
		log = logx.Nop()
	}
	ao, err := openstack.AuthOptionsFromEnv()
	if err != nil {
		return nil, fmt.Errorf("openstack auth options: %w", err)
	}
	ao.AllowReauth = true

	pc, err := openstack.AuthenticatedClient(ctx, ao)
	if err != nil {
		return nil, fmt.Errorf("openstack authenticate: %w", err)
	}
	return &Provider{
		log:      log,
		provider: pc,
		compute:  map[string]*gophercloud.ServiceClient{},
	}, nil
}

func (p *Provider) computeClient(region string) (*gophercloud.ServiceClient, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if sc, ok := p.compute[region]; ok {
		return sc, nil
	}
	sc, err := openstack.NewComputeV2(p.provider, gophercloud.EndpointOpts{Region: region})
	if err != nil {
		return nil, fmt.Errorf("compute endpoint for %q: %w", region, err)
	}
	p.compute[region] = sc
	return sc, nil
}

func (p *Provider) ListInstances(ctx context.Context, region string) ([]fleet.Instance, error) {
	sc, err := p.computeClient(region)
	if err != nil {
		return nil, err
	}

	pages, err := servers.List(sc, servers.ListOpts{AllTenants: true}).AllPages(ctx)
	if err != nil {
		return nil, fmt.Errorf("list servers in %q: %w", region, err)
	}
	all, err := servers.ExtractServers(pages)
	if err != nil {
		return nil, fmt.Errorf("extract servers in %q: %w", region, err)
	}

	out := make([]fleet.Instance, 0, len(all))
	for _, s := range all {
		running := strings.EqualFold(s.Status, "ACTIVE")
		out = append(out, fleet.FromTags(s.ID, region, s.Name, running, s.Metadata))
	}
	p.log.Debug("enumerated region",
		logx.String("region", region),
		logx.Int("instances", len(out)),
	)
	return out, nil
}

// StopInstances issues a stop call per id. A failed id is collected and the
// rest proceed; the joined error reports every failure.
func (p *Provider) StopInstances(ctx context.Context, region string, ids []string) error {
	sc, err := p.computeClient(region)
	if err != nil {
		return err
	}

	var errs []error
	for _, id := range ids {
		if err := servers.Stop(ctx, sc, id).ExtractErr(); err != nil {
			p.log.Error("stop failed",
				logx.String("region", region),
				logx.String("instance", id),
				logx.Err(err),
			)
			errs = append(errs, fmt.Errorf("stop %s: %w", id, err))
			continue
		}
		p.log.Warn("stopped instance", logx.String("region", region), logx.String("instance", id))
	}
	return errors.Join(errs...)
}
