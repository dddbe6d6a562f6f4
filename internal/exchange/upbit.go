package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/jhyeon-dev/coinwatch/internal/logger"
	"github.com/jhyeon-dev/coinwatch/internal/types"
	"github.com/jhyeon-dev/coinwatch/pkg/errors"
)

const (
	upbitRestBase = "https://api.upbit.com"
	upbitWsURL    = "wss://api.upbit.com/websocket/v1"

	// Upbit caps candle requests at 200 rows; longer histories are paged
	// backwards with the `to` parameter.
	upbitMaxCandlesPerRequest = 200

	upbitPingInterval = 60 * time.Second
	upbitWriteTimeout = 10 * time.Second

	// Upbit timestamps are naive UTC, e.g. "2024-01-01T00:00:00".
	upbitTimeLayout = "2006-01-02T15:04:05"
)

// UpbitExchange implements Exchange against the Upbit open API. Public
// market data needs no credentials.
type UpbitExchange struct {
	baseURL    string
	wsURL      string
	httpClient *http.Client
	logger     *logger.Logger
}

var _ Exchange = (*UpbitExchange)(nil)

// UpbitOption customizes the Upbit client.
type UpbitOption func(*UpbitExchange)

// WithUpbitURLs overrides the REST and websocket endpoints. Empty strings
// keep the defaults.
func WithUpbitURLs(baseURL, wsURL string) UpbitOption {
	return func(u *UpbitExchange) {
		if baseURL != "" {
			u.baseURL = baseURL
		}

		if wsURL != "" {
			u.wsURL = wsURL
		}
	}
}

// NewUpbitExchange creates an Upbit client for public market data.
func NewUpbitExchange(log *logger.Logger, opts ...UpbitOption) *UpbitExchange {
	u := &UpbitExchange{
		baseURL:    upbitRestBase,
		wsURL:      upbitWsURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     log,
	}

	for _, opt := range opts {
		opt(u)
	}

	return u
}

// Kind implements Exchange.
func (u *UpbitExchange) Kind() types.Exchange {
	return types.ExchangeUpbit
}

// FetchCandles implements Exchange. Upbit returns candles newest-first, so
// pages are walked backwards in time and the result reversed to ascending.
func (u *UpbitExchange) FetchCandles(ctx context.Context, symbol string, timeframe types.TimeFrame, limit int) ([]types.Candle, error) {
	endpoint := u.baseURL + timeframe.UpbitEndpoint()
	candles := make([]types.Candle, 0, limit)
	to := ""

	for remaining := limit; remaining > 0; {
		count := remaining
		if count > upbitMaxCandlesPerRequest {
			count = upbitMaxCandlesPerRequest
		}

		page, err := u.fetchCandlePage(ctx, endpoint, symbol, count, to)
		if err != nil {
			return nil, err
		}

		if len(page) == 0 {
			break
		}

		for _, raw := range page {
			candle, err := raw.toCandle(symbol, timeframe)
			if err != nil {
				return nil, err
			}

			candles = append(candles, candle)
		}

		remaining -= len(page)

		// A short page means history is exhausted.
		if len(page) < count {
			break
		}

		// The oldest candle of this page anchors the next one.
		to = page[len(page)-1].CandleDateTimeUTC
	}

	candles = types.ReverseCandles(candles)

	u.logger.Debug("fetched upbit candles",
		zap.String("symbol", symbol),
		zap.String("timeframe", string(timeframe)),
		zap.Int("count", len(candles)))

	return candles, nil
}

func (u *UpbitExchange) fetchCandlePage(ctx context.Context, endpoint, symbol string, count int, to string) ([]upbitCandle, error) {
	query := url.Values{}
	query.Set("market", symbol)
	query.Set("count", fmt.Sprintf("%d", count))

	if to != "" {
		query.Set("to", to)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+query.Encode(), nil)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeExchangeRequest, "failed to build upbit candle request", err)
	}

	resp, err := u.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeExchangeRequest, err,
			"failed to fetch %s candles", symbol)
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeExchangeRequest, "failed to read upbit candle response", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, errors.Newf(errors.ErrCodeExchangeRateLimit, "upbit rate limited: %s", body)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Newf(errors.ErrCodeExchangeRequest, "upbit candle request failed: %d %s", resp.StatusCode, body)
	}

	var page []upbitCandle
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, errors.Wrap(errors.ErrCodeExchangeParse, "invalid upbit candle response", err)
	}

	return page, nil
}

// upbitCandle is one row of the Upbit candle REST response, newest-first.
type upbitCandle struct {
	CandleDateTimeUTC    string  `json:"candle_date_time_utc"`
	OpeningPrice         float64 `json:"opening_price"`
	HighPrice            float64 `json:"high_price"`
	LowPrice             float64 `json:"low_price"`
	TradePrice           float64 `json:"trade_price"`
	CandleAccTradeVolume float64 `json:"candle_acc_trade_volume"`
}

func (c upbitCandle) toCandle(symbol string, timeframe types.TimeFrame) (types.Candle, error) {
	openTime, err := time.Parse(upbitTimeLayout, c.CandleDateTimeUTC)
	if err != nil {
		return types.Candle{}, errors.Wrap(errors.ErrCodeExchangeParse, "invalid upbit candle timestamp", err)
	}

	return types.Candle{
		Exchange:  types.ExchangeUpbit,
		Symbol:    symbol,
		Timeframe: timeframe,
		OpenTime:  openTime.UTC(),
		Open:      c.OpeningPrice,
		High:      c.HighPrice,
		Low:       c.LowPrice,
		Close:     c.TradePrice,
		Volume:    c.CandleAccTradeVolume,
	}, nil
}

// SubscribeTrades implements Exchange over the Upbit websocket. Upbit sends
// trade frames as binary JSON and expects a ping at least once a minute.
func (u *UpbitExchange) SubscribeTrades(symbols []string, handler TradeHandler, errHandler ErrorHandler) (func(), <-chan struct{}, error) {
	conn, _, err := websocket.DefaultDialer.Dial(u.wsURL, nil)
	if err != nil {
		return nil, nil, errors.Wrap(errors.ErrCodeExchangeStream, "failed to open upbit trade stream", err)
	}

	subscribe, err := buildUpbitTradeSubscribe(symbols)
	if err != nil {
		conn.Close() //nolint:errcheck

		return nil, nil, err
	}

	if err := conn.WriteMessage(websocket.TextMessage, subscribe); err != nil {
		conn.Close() //nolint:errcheck

		return nil, nil, errors.Wrap(errors.ErrCodeExchangeStream, "failed to subscribe upbit trade stream", err)
	}

	u.logger.Info("upbit trade stream connected", zap.Strings("symbols", symbols))

	stopC := make(chan struct{})
	doneC := make(chan struct{})

	var stopOnce sync.Once
	stop := func() {
		stopOnce.Do(func() { close(stopC) })
	}

	go u.keepAlive(conn, stopC, doneC)
	go u.readTrades(conn, handler, errHandler, stopC, doneC)

	return stop, doneC, nil
}

// keepAlive pings the connection periodically and tears it down on stop,
// which unblocks the reader.
func (u *UpbitExchange) keepAlive(conn *websocket.Conn, stopC, doneC <-chan struct{}) {
	ticker := time.NewTicker(upbitPingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stopC:
			conn.Close() //nolint:errcheck

			return
		case <-doneC:
			return
		case <-ticker.C:
			deadline := time.Now().Add(upbitWriteTimeout)
			if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				u.logger.Warn("upbit ping failed", zap.Error(err))
			}
		}
	}
}

func (u *UpbitExchange) readTrades(conn *websocket.Conn, handler TradeHandler, errHandler ErrorHandler, stopC <-chan struct{}, doneC chan<- struct{}) {
	defer close(doneC)
	defer conn.Close() //nolint:errcheck

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-stopC:
				// Shutdown closed the connection under us.
			default:
				errHandler(errors.Wrap(errors.ErrCodeExchangeStream, "upbit trade stream error", err))
			}

			return
		}

		trade, ok, err := parseUpbitTrade(data)
		if err != nil {
			errHandler(err)

			continue
		}

		if !ok {
			continue
		}

		handler(trade)
	}
}

// buildUpbitTradeSubscribe builds the three-part subscription message the
// Upbit websocket expects.
func buildUpbitTradeSubscribe(symbols []string) ([]byte, error) {
	message := []any{
		map[string]any{"ticket": uuid.NewString()},
		map[string]any{
			"type":             "trade",
			"codes":            symbols,
			"is_only_realtime": true,
		},
		map[string]any{"format": "DEFAULT"},
	}

	encoded, err := json.Marshal(message)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeExchangeStream, "failed to encode upbit subscription", err)
	}

	return encoded, nil
}

// upbitTradeMsg is one websocket trade frame. Timestamp is unix millis.
type upbitTradeMsg struct {
	Type        string  `json:"type"`
	Code        string  `json:"code"`
	TradePrice  float64 `json:"trade_price"`
	TradeVolume float64 `json:"trade_volume"`
	Timestamp   int64   `json:"timestamp"`
}

// parseUpbitTrade decodes a websocket frame. Non-trade frames such as the
// connection status reply are skipped with ok=false.
func parseUpbitTrade(data []byte) (types.MarketTrade, bool, error) {
	var msg upbitTradeMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		return types.MarketTrade{}, false, errors.Wrap(errors.ErrCodeExchangeParse, "invalid upbit trade frame", err)
	}

	if msg.Type != "trade" {
		return types.MarketTrade{}, false, nil
	}

	return types.MarketTrade{
		Exchange:  types.ExchangeUpbit,
		Symbol:    msg.Code,
		Price:     msg.TradePrice,
		Volume:    msg.TradeVolume,
		Timestamp: time.UnixMilli(msg.Timestamp).UTC(),
	}, true, nil
}
