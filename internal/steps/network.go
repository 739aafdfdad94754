package steps

import (
	"context"
	"fmt"

	"github.com/alexisbeaulieu97/zbxproxy/internal/domain/reconcile"
	"github.com/alexisbeaulieu97/zbxproxy/internal/ports"
	"github.com/alexisbeaulieu97/zbxproxy/internal/validation"
	zerrors "github.com/alexisbeaulieu97/zbxproxy/pkg/errors"
)

type networkStep struct {
	network ports.NetworkConfigurator
}

func (s *networkStep) Name() string { return Network }

// Fatal once the operator asked for a static address.
func (s *networkStep) Fatal(desired reconcile.DesiredState) bool { return desired.Network.Configure }

func (s *networkStep) Evaluate(ctx context.Context, desired reconcile.DesiredState) (*reconcile.Evaluation, error) {
	if !desired.Network.Configure {
		return &reconcile.Evaluation{SkipReason: "network configuration not requested"}, nil
	}

	net := desired.Network
	prefix, err := validation.NetmaskToCIDR(net.Netmask)
	if err != nil {
		return nil, err
	}
	addr, current, ok, err := s.network.CurrentAddress(ctx, net.Interface)
	if err != nil {
		return nil, zerrors.NewCollaboratorError(Network, "network", err)
	}

	want := fmt.Sprintf("%s/%d", net.Address, prefix)
	if ok && addr == net.Address && current == prefix {
		return &reconcile.Evaluation{Satisfied: true, Message: fmt.Sprintf("%s already has %s", net.Interface, want)}, nil
	}

	have := "no IPv4 address"
	if ok {
		have = fmt.Sprintf("%s/%d", addr, current)
	}
	return &reconcile.Evaluation{
		Message: fmt.Sprintf("%s has %s, want %s", net.Interface, have, want),
		Diff:    fmt.Sprintf("-%s %s\n+%s %s\n", net.Interface, have, net.Interface, want),
		Data: ports.StaticAddress{
			Interface:   net.Interface,
			Address:     net.Address,
			Prefix:      prefix,
			Gateway:     net.Gateway,
			Nameservers: net.DNS(),
			MTU:         net.MTU,
		},
	}, nil
}

func (s *networkStep) Apply(ctx context.Context, desired reconcile.DesiredState, eval *reconcile.Evaluation) reconcile.StepResult {
	cfg, ok := eval.Data.(ports.StaticAddress)
	if !ok {
		return reconcile.Failed(Network, fmt.Errorf("evaluation carried no address"))
	}
	if err := s.network.ApplyStaticConfig(ctx, cfg); err != nil {
		return reconcile.Failed(Network, zerrors.NewCollaboratorError(Network, "network", err))
	}

	addr, prefix, found, err := s.network.CurrentAddress(ctx, cfg.Interface)
	if err != nil {
		return reconcile.Failed(Network, zerrors.NewCollaboratorError(Network, "network", err))
	}
	if !found || addr != cfg.Address || prefix != cfg.Prefix {
		return reconcile.Failed(Network, zerrors.NewCollaboratorError(Network, "network",
			fmt.Errorf("%s did not pick up %s/%d", cfg.Interface, cfg.Address, cfg.Prefix)))
	}
	return reconcile.Applied(Network, fmt.Sprintf("%s set to %s/%d", cfg.Interface, cfg.Address, cfg.Prefix))
}
