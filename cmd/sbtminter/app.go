package main

import (
	"context"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"

	"sbt-minter/internal/config"
	"sbt-minter/internal/evm"
	"sbt-minter/internal/logger"
	"sbt-minter/internal/minter"
)

// app holds the wired components of one CLI invocation.
type app struct {
	cfg     *config.Config
	logger  *logrus.Logger
	minter  *minter.Orchestrator
	closers []io.Closer
}

// newApp wires logging, the wallet transport and the orchestrator from cfg.
// The head subscription is optional; without it confirmation falls back to polling.
func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	log, logCloser, err := logger.Init(logger.Options{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		File:   cfg.LogFile,
	})
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, logger: log, closers: []io.Closer{logCloser}}

	contract, err := evm.NewContract(cfg.ContractAddress, cfg.ContractABI, cfg.MintMethod, cfg.BatchMintMethod)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("load contract: %w", err)
	}

	rpc := evm.NewHTTPClient(cfg.RPCURL,
		evm.WithTimeout(cfg.RPCTimeout),
		evm.WithMaxRetries(cfg.RPCMaxRetries),
		evm.WithRateLimit(cfg.RPCRateLimit, 1),
	)

	var heads evm.HeadSubscriber
	if cfg.WSURL != "" {
		ws, err := evm.NewWSClient(ctx, cfg.WSURL, nil, log)
		if err != nil {
			log.WithError(err).Warn("websocket unavailable, confirmations will poll only")
		} else {
			heads = ws
			a.closers = append(a.closers, ws)
		}
	}

	wallet := evm.NewRPCWallet(evm.RPCWalletOptions{
		RPC:          rpc,
		Heads:        heads,
		Decoder:      contract.DecodeRevert,
		PollInterval: cfg.PollInterval,
		Logger:       log,
	})

	a.minter = minter.New(minter.Options{
		Wallet:   wallet,
		Contract: contract,
		Network:  cfg.Chain,
		Logger:   log,
	})

	log.WithFields(logrus.Fields{
		"rpc_url":  cfg.RPCURL,
		"contract": cfg.ContractAddress.Hex(),
		"chain_id": cfg.Chain.ChainID,
	}).Debug("minter configured")

	return a, nil
}

// Close releases the websocket and log file, newest first.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i].Close()
	}
}
