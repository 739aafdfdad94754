package validation

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/alexisbeaulieu97/zbxproxy/internal/domain/reconcile"
	zerrors "github.com/alexisbeaulieu97/zbxproxy/pkg/errors"
)

const (
	minMTU = 576
	maxMTU = 9216
)

// ValidateDesiredState checks every present field of the desired state and
// returns all violations at once. Only the format and range of the version
// are checked here; upstream availability needs a collaborator. An empty
// version stands for the latest upstream release and is resolved later.
func ValidateDesiredState(d reconcile.DesiredState, now time.Time) error {
	var result *multierror.Error
	add := func(field string, err error) {
		if err == nil {
			return
		}
		result = multierror.Append(result, withField(field, err))
	}

	if d.ZabbixVersion != "" {
		_, err := CheckVersionRange(d.ZabbixVersion, now)
		add("version", err)
	}
	add("server", ValidateServerAddress(d.ServerAddress))
	add("hostname", ValidateHostname(d.ProxyHostname))

	switch d.ProxyMode {
	case reconcile.ProxyModeActive, reconcile.ProxyModePassive:
	default:
		add("mode", zerrors.NewValidationError("", string(d.ProxyMode), "must be active or passive"))
	}

	db := d.Database
	switch db.Engine {
	case reconcile.EngineMySQL, reconcile.EnginePostgreSQL:
	default:
		add("database.engine", zerrors.NewValidationError("", string(db.Engine), "must be mysql or postgresql"))
	}
	add("database.host", ValidateServerAddress(db.Host))
	add("database.name", ValidateIdentifier(db.Name))
	add("database.user", ValidateIdentifier(db.User))
	add("database.password", validatePassword(db.Engine, db.Password))
	if db.Port < 0 || db.Port > 65535 {
		add("database.port", zerrors.NewValidationError("", fmt.Sprint(db.Port), "must be between 0 and 65535"))
	}

	if d.Network.Configure {
		n := d.Network
		add("network.interface", ValidateInterfaceName(n.Interface))
		add("network.address", ValidateIPv4Address(n.Address))
		add("network.netmask", ValidateNetmask(n.Netmask))
		if n.Gateway != "" {
			add("network.gateway", ValidateIPv4Address(n.Gateway))
		}
		for i, ns := range n.Nameservers {
			add(fmt.Sprintf("network.dns[%d]", i), ValidateIPv4Address(ns))
		}
		if n.MTU != 0 && (n.MTU < minMTU || n.MTU > maxMTU) {
			add("network.mtu", zerrors.NewValidationError("", fmt.Sprint(n.MTU), fmt.Sprintf("must be between %d and %d", minMTU, maxMTU)))
		}
	}

	return result.ErrorOrNil()
}

func validatePassword(engine reconcile.DatabaseEngine, s string) error {
	if s == "" {
		return zerrors.NewValidationError("password", "", "must not be empty")
	}
	if strings.ContainsAny(s, "\r\n\x00") {
		return zerrors.NewValidationError("password", "<redacted>", "must not contain line breaks or NUL")
	}
	// MySQL reads a backslash differently depending on sql_mode.
	if engine == reconcile.EngineMySQL && strings.Contains(s, `\`) {
		return zerrors.NewValidationError("password", "<redacted>", "must not contain a backslash for mysql")
	}
	return nil
}

// withField rewrites the field of a ValidationError so messages point at the
// configuration key instead of the generic validator name.
func withField(field string, err error) error {
	var ve *zerrors.ValidationError
	if errors.As(err, &ve) {
		copied := *ve
		copied.Field = field
		return &copied
	}
	return err
}
