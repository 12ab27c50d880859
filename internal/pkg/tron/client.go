package tron

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
)

// Transfer is a confirmed token transfer event observed on chain.
type Transfer struct {
	TxID      string
	From      string
	To        string
	Amount    decimal.Decimal
	Timestamp time.Time
}

// Config holds TronGrid connection settings.
type Config struct {
	BaseURL  string
	APIKey   string
	Contract string
	Timeout  time.Duration
}

// Client is a read-only TronGrid HTTP client for a single TRC20 contract.
type Client struct {
	http     *resty.Client
	contract string
}

func NewClient(cfg Config) *Client {
	httpClient := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetHeader("Accept", "application/json")

	if cfg.APIKey != "" {
		httpClient.SetHeader("TRON-PRO-API-KEY", cfg.APIKey)
	}

	return &Client{
		http:     httpClient,
		contract: cfg.Contract,
	}
}

type nowBlockResponse struct {
	BlockHeader struct {
		RawData struct {
			Number int64 `json:"number"`
		} `json:"raw_data"`
	} `json:"block_header"`
}

// NowBlock returns the current confirmed block height.
func (c *Client) NowBlock(ctx context.Context) (int64, error) {
	var result nowBlockResponse

	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&result).
		Post("/wallet/getnowblock")
	if err != nil {
		return 0, fmt.Errorf("getnowblock: %w", err)
	}
	if resp.IsError() {
		return 0, fmt.Errorf("getnowblock: unexpected status %d", resp.StatusCode())
	}
	if result.BlockHeader.RawData.Number == 0 {
		return 0, fmt.Errorf("getnowblock: empty block header")
	}

	return result.BlockHeader.RawData.Number, nil
}

type trc20Response struct {
	Success bool `json:"success"`
	Data    []struct {
		TransactionID  string `json:"transaction_id"`
		BlockTimestamp int64  `json:"block_timestamp"`
		From           string `json:"from"`
		To             string `json:"to"`
		Type           string `json:"type"`
		Value          string `json:"value"`
		TokenInfo      struct {
			Symbol   string `json:"symbol"`
			Decimals int32  `json:"decimals"`
		} `json:"token_info"`
	} `json:"data"`
}

// TokenTransfers returns confirmed incoming transfers of the configured
// contract to the given address since the given time, oldest first.
func (c *Client) TokenTransfers(ctx context.Context, address string, since time.Time) ([]Transfer, error) {
	var result trc20Response

	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"contract_address": c.contract,
			"only_confirmed":   "true",
			"only_to":          "true",
			"min_timestamp":    strconv.FormatInt(since.UnixMilli(), 10),
			"limit":            "200",
		}).
		SetResult(&result).
		Get("/v1/accounts/" + address + "/transactions/trc20")
	if err != nil {
		return nil, fmt.Errorf("trc20 transfers: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("trc20 transfers: unexpected status %d", resp.StatusCode())
	}
	if !result.Success {
		return nil, fmt.Errorf("trc20 transfers: provider reported failure")
	}

	transfers := make([]Transfer, 0, len(result.Data))
	for _, ev := range result.Data {
		if ev.Type != "Transfer" {
			continue
		}
		raw, err := decimal.NewFromString(ev.Value)
		if err != nil {
			return nil, fmt.Errorf("trc20 transfers: bad value %q in tx %s: %w", ev.Value, ev.TransactionID, err)
		}
		transfers = append(transfers, Transfer{
			TxID:      ev.TransactionID,
			From:      ev.From,
			To:        ev.To,
			Amount:    raw.Shift(-ev.TokenInfo.Decimals),
			Timestamp: time.UnixMilli(ev.BlockTimestamp),
		})
	}

	// TronGrid pages newest-first; callers match in event order.
	sort.Slice(transfers, func(i, j int) bool {
		return transfers[i].Timestamp.Before(transfers[j].Timestamp)
	})

	return transfers, nil
}
