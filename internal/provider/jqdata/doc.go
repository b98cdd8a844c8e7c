// Package jqdata implements the JoinQuant data API provider.
//
// Endpoint: https://dataapi.joinquant.com/apis
//
// Every call is a POST with a JSON body {"method": ..., "token": ..., ...}.
// Responses are CSV text; failures come back as HTTP 200 with a body
// starting with "error".
//
// Methods used: get_token, run_query (opt.OPT_CONTRACT_INFO,
// opt.OPT_DAILY_PRICE), get_price_period, get_all_trade_days.
package jqdata
