package entity

import jsoniter "github.com/json-iterator/go"

// TxListResponse is the envelope returned by Etherscan-compatible account APIs.
// Result is an array of records on success and a plain string describing the problem on failure.
type TxListResponse struct {
	Status  string              `json:"status"`
	Message string              `json:"message"`
	Result  jsoniter.RawMessage `json:"result"`
}

// TxRecord is one entry of module=account&action=txlist. Numbers arrive as decimal strings.
type TxRecord struct {
	BlockNumber     string `json:"blockNumber"`
	TimeStamp       string `json:"timeStamp"`
	Hash            string `json:"hash"`
	From            string `json:"from"`
	To              string `json:"to"`
	Value           string `json:"value"`
	ContractAddress string `json:"contractAddress"`
	IsError         string `json:"isError"`
}
