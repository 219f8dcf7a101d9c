package registry

import (
	"context"
	"time"

	"spendlens/domain/contract"
	"spendlens/domain/metric"
	"spendlens/domain/table"
	"spendlens/ports"
)

// ContractFetcher pulls fresh contracts from the enterprise sources.
// The connector manager satisfies this.
type ContractFetcher interface {
	Consolidated(ctx context.Context) (*ports.ConsolidatedResult, error)
}

// ContractProvider serves the consolidated contract table for every
// live-capable metric, the way the dashboard's data manager did. The
// repository is consulted first since it holds the last pipeline result;
// the fetcher is the slow path when nothing is stored yet.
type ContractProvider struct {
	repo        ports.ContractRepository
	fetcher     ContractFetcher
	warningDays int
}

// NewContractProvider creates a provider; repo and fetcher are each
// optional, but at least one should be set.
func NewContractProvider(repo ports.ContractRepository, fetcher ContractFetcher) *ContractProvider {
	return &ContractProvider{
		repo:        repo,
		fetcher:     fetcher,
		warningDays: contract.DefaultWarningDays,
	}
}

// LiveTable implements LiveProvider
func (p *ContractProvider) LiveTable(ctx context.Context, _ metric.Persona, _ string) (*table.Table, bool, error) {
	if p.repo != nil {
		contracts, err := p.repo.ListAll(ctx)
		if err == nil && len(contracts) > 0 {
			return contract.ToTable(contracts, time.Now().UTC(), p.warningDays), true, nil
		}
	}

	if p.fetcher != nil {
		result, err := p.fetcher.Consolidated(ctx)
		if err != nil {
			return nil, false, err
		}
		if len(result.Contracts) > 0 {
			return contract.ToTable(result.Contracts, time.Now().UTC(), p.warningDays), true, nil
		}
	}

	return nil, false, nil
}
