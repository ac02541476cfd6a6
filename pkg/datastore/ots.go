package datastore

import (
	"fmt"
	"sync"

	"github.com/aliyun/aliyun-tablestore-go-sdk/tablestore"
	conf "github.com/deepserve/image-classifier-api/pkg/config"
)

var (
	otsClient *tablestore.TableStoreClient
	once      sync.Once
)

// OtsStore keep train job rows on Tablestore, for deployments without a
// durable local disk. One client per process, shared across tables.
type OtsStore struct {
	config *Config
}

func initOtsClient() {
	otsClient = tablestore.NewClient(conf.ConfigGlobal.OtsEndpoint, conf.ConfigGlobal.OtsInstanceName,
		conf.ConfigGlobal.AccessKeyId, conf.ConfigGlobal.AccessKeySecret)
}

// otsColumnType map the schema type names shared with the sqlite backend
func otsColumnType(s string) tablestore.DefinedColumnType {
	if s == "INT" {
		return tablestore.DefinedColumn_INTEGER
	}
	return tablestore.DefinedColumn_STRING
}

func rowKey(key string) *tablestore.PrimaryKey {
	pk := new(tablestore.PrimaryKey)
	pk.AddPrimaryKeyColumn(conf.COLPK, key)
	return pk
}

func NewOtsDatastore(config *Config) (*OtsStore, error) {
	once.Do(initOtsClient)

	// reuse the table when it already exists
	describe := &tablestore.DescribeTableRequest{TableName: config.TableName}
	if info, err := otsClient.DescribeTable(describe); err == nil && info.TableMeta != nil {
		return &OtsStore{config: config}, nil
	}

	meta := new(tablestore.TableMeta)
	meta.TableName = config.TableName
	meta.AddPrimaryKeyColumn(conf.COLPK, tablestore.PrimaryKeyType_STRING)
	for column, typ := range config.ColumnConfig {
		meta.AddDefinedColumn(column, otsColumnType(typ))
	}
	request := &tablestore.CreateTableRequest{
		TableMeta: meta,
		TableOption: &tablestore.TableOption{
			TimeToAlive: config.TimeToAlive,
			MaxVersion:  config.MaxVersion,
		},
		ReservedThroughput: new(tablestore.ReservedThroughput),
	}
	if _, err := otsClient.CreateTable(request); err != nil {
		return nil, fmt.Errorf("create ots table %s: %w", config.TableName, err)
	}
	return &OtsStore{config: config}, nil
}

func (o *OtsStore) Get(key string, columns []string) (map[string]interface{}, error) {
	request := &tablestore.GetRowRequest{
		SingleRowQueryCriteria: &tablestore.SingleRowQueryCriteria{
			PrimaryKey:   rowKey(key),
			ColumnsToGet: columns,
			TableName:    o.config.TableName,
			MaxVersion:   1,
		},
	}
	resp, err := otsClient.GetRow(request)
	if err != nil {
		return nil, fmt.Errorf("ots get %s: %w", key, err)
	}
	columnMap := resp.GetColumnMap()
	if len(columnMap.Columns) == 0 {
		return nil, nil
	}
	row := make(map[string]interface{}, len(columnMap.Columns))
	for name, versions := range columnMap.Columns {
		row[name] = versions[0].Value
	}
	return row, nil
}

func (o *OtsStore) Put(key string, values map[string]interface{}) error {
	change := &tablestore.PutRowChange{
		TableName:  o.config.TableName,
		PrimaryKey: rowKey(key),
	}
	for column, value := range values {
		change.AddColumn(column, value)
	}
	change.SetCondition(tablestore.RowExistenceExpectation_IGNORE)
	if _, err := otsClient.PutRow(&tablestore.PutRowRequest{PutRowChange: change}); err != nil {
		return fmt.Errorf("ots put %s: %w", key, err)
	}
	return nil
}

func (o *OtsStore) Update(key string, values map[string]interface{}) error {
	change := &tablestore.UpdateRowChange{
		TableName:  o.config.TableName,
		PrimaryKey: rowKey(key),
	}
	for column, value := range values {
		change.PutColumn(column, value)
	}
	change.SetCondition(tablestore.RowExistenceExpectation_EXPECT_EXIST)
	if _, err := otsClient.UpdateRow(&tablestore.UpdateRowRequest{UpdateRowChange: change}); err != nil {
		return fmt.Errorf("ots update %s: %w", key, err)
	}
	return nil
}

// Delete a row, deleting a missing key is not an error
func (o *OtsStore) Delete(key string) error {
	change := &tablestore.DeleteRowChange{
		TableName:  o.config.TableName,
		PrimaryKey: rowKey(key),
	}
	change.SetCondition(tablestore.RowExistenceExpectation_IGNORE)
	if _, err := otsClient.DeleteRow(&tablestore.DeleteRowRequest{DeleteRowChange: change}); err != nil {
		return fmt.Errorf("ots delete %s: %w", key, err)
	}
	return nil
}

// ListAll scan the whole table, paging until the range is exhausted
func (o *OtsStore) ListAll(columns []string) (map[string]map[string]interface{}, error) {
	start := new(tablestore.PrimaryKey)
	start.AddPrimaryKeyColumnWithMinValue(conf.COLPK)
	end := new(tablestore.PrimaryKey)
	end.AddPrimaryKeyColumnWithMaxValue(conf.COLPK)

	rows := make(map[string]map[string]interface{})
	for {
		resp, err := otsClient.GetRange(&tablestore.GetRangeRequest{
			RangeRowQueryCriteria: &tablestore.RangeRowQueryCriteria{
				TableName:       o.config.TableName,
				StartPrimaryKey: start,
				EndPrimaryKey:   end,
				Direction:       tablestore.FORWARD,
				MaxVersion:      1,
				Limit:           100,
				ColumnsToGet:    columns,
			},
		})
		if err != nil {
			return nil, fmt.Errorf("ots range scan: %w", err)
		}
		for _, r := range resp.Rows {
			row := make(map[string]interface{}, len(r.Columns))
			for _, col := range r.Columns {
				row[col.ColumnName] = col.Value
			}
			key, _ := r.PrimaryKey.PrimaryKeys[0].Value.(string)
			rows[key] = row
		}
		if resp.NextStartPrimaryKey == nil || len(resp.NextStartPrimaryKey.PrimaryKeys) == 0 {
			return rows, nil
		}
		start = resp.NextStartPrimaryKey
	}
}

func (o *OtsStore) Close() error {
	return nil
}
