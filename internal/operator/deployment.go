package operator

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
)

// DeploymentRecord is one entry of the deployment log.
type DeploymentRecord struct {
	CreationDate    time.Time      `json:"creationDate"`
	Network         string         `json:"network"`
	TokenName       string         `json:"tokenName"`
	TokenSymbol     string         `json:"tokenSymbol"`
	InitialSupply   string         `json:"initialSupply"`
	TaxPercentage   string         `json:"taxPercentage"`
	TaxWallet       common.Address `json:"taxWallet"`
	MaxTxAmount     string         `json:"maxTxAmount"`
	MaxWalletAmount string         `json:"maxWalletAmount"`
	Decimals        string         `json:"decimals"`
	ContractAddress common.Address `json:"contractAddress"`
	DeployerAddress common.Address `json:"deployerAddress"`
	TransactionHash common.Hash    `json:"transactionHash"`
	BlockNumber     uint64         `json:"blockNumber"`
}

// RecordDeployment stores rec in the JSON array at path, creating the file if
// needed. A node hosts one token, so the log holds one record per network and
// contract address: a redeploy to a reset node replaces the earlier record.
func RecordDeployment(path string, rec DeploymentRecord) error {
	records, err := ReadDeployments(path)
	if err != nil {
		return err
	}
	if i := indexOf(records, rec.Network, rec.ContractAddress); i >= 0 {
		records[i] = rec
	} else {
		records = append(records, rec)
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encode deployment log")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrapf(err, "create %s", dir)
		}
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return errors.Wrapf(err, "write %s", tmp)
	}
	return errors.Wrapf(os.Rename(tmp, path), "replace %s", path)
}

// ReadDeployments returns the records at path. A missing file is empty.
func ReadDeployments(path string) ([]DeploymentRecord, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", path)
	}
	var records []DeploymentRecord
	if len(data) == 0 {
		return nil, nil
	}
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, errors.Wrapf(err, "parse %s", path)
	}
	return records, nil
}

// FindDeployment returns the record for contract on network, if logged.
func FindDeployment(path, network string, contract common.Address) (*DeploymentRecord, error) {
	records, err := ReadDeployments(path)
	if err != nil {
		return nil, err
	}
	i := indexOf(records, network, contract)
	if i < 0 {
		return nil, nil
	}
	return &records[i], nil
}

func indexOf(records []DeploymentRecord, network string, contract common.Address) int {
	for i, r := range records {
		if r.Network == network && r.ContractAddress == contract {
			return i
		}
	}
	return -1
}
