package config

import (
	"errors"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type Config struct {
	HTTPAddr      string
	DBDSN         string
	JWTIssuer     string
	JWTSecret     string
	JWTTTL        time.Duration
	WSOrigin      string
	SimTick       time.Duration
	QuoteTick     time.Duration
	ContractSize  decimal.Decimal
	AdminUsername string
	AdminPassword string
}

func Load() (Config, error) {
	var c Config
	var missing []string
	c.HTTPAddr = os.Getenv("HTTP_ADDR")
	if c.HTTPAddr == "" {
		missing = append(missing, "HTTP_ADDR")
	}
	c.DBDSN = os.Getenv("DB_DSN")
	if c.DBDSN == "" {
		missing = append(missing, "DB_DSN")
	}
	c.JWTIssuer = os.Getenv("JWT_ISSUER")
	if c.JWTIssuer == "" {
		missing = append(missing, "JWT_ISSUER")
	}
	c.JWTSecret = os.Getenv("JWT_SECRET")
	if c.JWTSecret == "" {
		missing = append(missing, "JWT_SECRET")
	}
	jwtTTL := os.Getenv("JWT_TTL")
	if jwtTTL == "" {
		missing = append(missing, "JWT_TTL")
	} else {
		d, err := time.ParseDuration(jwtTTL)
		if err != nil || d <= 0 {
			return c, errors.New("invalid JWT_TTL")
		}
		c.JWTTTL = d
	}
	c.WSOrigin = os.Getenv("WS_ORIGIN")
	if c.WSOrigin == "" {
		missing = append(missing, "WS_ORIGIN")
	}
	simTick := os.Getenv("SIM_TICK")
	if simTick == "" {
		c.SimTick = 100 * time.Millisecond
	} else {
		d, err := time.ParseDuration(simTick)
		if err != nil || d <= 0 {
			return c, errors.New("invalid SIM_TICK")
		}
		c.SimTick = d
	}
	quoteTick := os.Getenv("QUOTE_TICK")
	if quoteTick == "" {
		c.QuoteTick = 250 * time.Millisecond
	} else {
		d, err := time.ParseDuration(quoteTick)
		if err != nil || d <= 0 {
			return c, errors.New("invalid QUOTE_TICK")
		}
		c.QuoteTick = d
	}
	contractSize := os.Getenv("CONTRACT_SIZE")
	if contractSize == "" {
		contractSize = "100000"
	}
	cs, err := decimal.NewFromString(contractSize)
	if err != nil || cs.Sign() <= 0 {
		return c, errors.New("invalid CONTRACT_SIZE")
	}
	c.ContractSize = cs
	c.AdminUsername = strings.TrimSpace(os.Getenv("ADMIN_USERNAME"))
	c.AdminPassword = os.Getenv("ADMIN_PASSWORD")
	if c.AdminUsername != "" && c.AdminPassword == "" {
		missing = append(missing, "ADMIN_PASSWORD")
	}
	if len(missing) > 0 {
		return c, errors.New("missing required env: " + strings.Join(missing, ","))
	}
	return c, nil
}
