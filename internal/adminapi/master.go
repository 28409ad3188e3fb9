package adminapi

import (
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/liderplast/backoffice/internal/domain"
	"github.com/liderplast/backoffice/internal/webserver"
	"github.com/liderplast/backoffice/pkg/common"
	"github.com/liderplast/backoffice/pkg/validate"
	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// MasterTableInfo a lookup table and its row count
type MasterTableInfo struct {
	Name     string `json:"name"`
	RowCount int64  `json:"row_count"`
}

// masterTable a lookup table editable through the generic CRUD
type masterTable struct {
	name      string
	model     reflect.Type
	search    []string
	activeCol string
	// stale views when a row changes
	views []string
}

var tripViews = []string{"/fletes", "/fletes/"}

var masterTables = []masterTable{
	{name: "provinces", model: reflect.TypeOf(domain.Province{}), search: []string{"name"}, activeCol: "is_sellable"},
	{name: "catalog_items", model: reflect.TypeOf(domain.CatalogItem{}), search: []string{"name", "description", "sku"}, activeCol: "is_active"},
	{name: "clients", model: reflect.TypeOf(domain.Client{}), search: []string{"name", "document", "phone", "city"}, activeCol: "is_active"},
	{name: "sellers", model: reflect.TypeOf(domain.Seller{}), search: []string{"name", "email"}, activeCol: "is_active"},
	{name: "resellers", model: reflect.TypeOf(domain.Reseller{}), search: []string{"name", "contact"}, activeCol: "is_active"},
	{name: "suppliers", model: reflect.TypeOf(domain.Supplier{}), search: []string{"name", "contact", "category"}, activeCol: "is_active"},
	{name: "installers", model: reflect.TypeOf(domain.Installer{}), search: []string{"name", "zone"}, activeCol: "is_active"},
	{name: "vehicles", model: reflect.TypeOf(domain.Vehicle{}), search: []string{"name", "plate"}, activeCol: "is_active", views: tripViews},
	{name: "drivers", model: reflect.TypeOf(domain.Driver{}), search: []string{"name", "phone"}, activeCol: "is_active", views: tripViews},
	{name: "reseller_price_lists", model: reflect.TypeOf(domain.ResellerPriceList{}), search: []string{"name"}, activeCol: "is_active"},
	{name: "finance_categories", model: reflect.TypeOf(domain.FinanceCategory{}), search: []string{"name"}, activeCol: "is_active"},
	{name: "finance_subcategories", model: reflect.TypeOf(domain.FinanceSubcategory{}), search: []string{"name"}, activeCol: "is_active"},
	{name: "finance_payment_methods", model: reflect.TypeOf(domain.FinancePaymentMethod{}), search: []string{"name"}, activeCol: "is_active"},
	{name: "finance_vendors", model: reflect.TypeOf(domain.FinanceVendor{}), search: []string{"name", "cuit"}, activeCol: "is_active"},
}

// sortable columns every master table has
var masterSortColumns = map[string]bool{"id": true, "name": true, "created_at": true}

// registerMasterRoutes registers the generic lookup table CRUD
func registerMasterRoutes() {
	webserver.ApiGET("/master", listMasterTables)
	webserver.ApiGET("/master/:table", listMasterRows)
	webserver.ApiGET("/master/:table/:id", getMasterRow)
	webserver.ApiPOST("/master/:table", createMasterRow)
	webserver.ApiPUT("/master/:table/:id", updateMasterRow)
	webserver.ApiDELETE("/master/:table/:id", deleteMasterRow, webserver.RequireRole(webserver.RoleAdmin))
}

func lookupMasterTable(name string) (*masterTable, bool) {
	for i := range masterTables {
		if masterTables[i].name == name {
			return &masterTables[i], true
		}
	}
	return nil, false
}

func (t *masterTable) newRow() interface{} {
	return reflect.New(t.model).Interface()
}

func (t *masterTable) newSlice() interface{} {
	return reflect.New(reflect.SliceOf(t.model)).Interface()
}

func masterTableParam(c echo.Context) (*masterTable, error) {
	t, found := lookupMasterTable(c.Param("table"))
	if !found {
		return nil, fail(c, http.StatusNotFound, "TABLE_NOT_FOUND", "Unknown master table", c.Param("table"))
	}
	return t, nil
}

// decodeMasterRow decodes a JSON object onto the model keyed by json tags.
// Keys absent from data keep their current value.
func decodeMasterRow(data map[string]interface{}, out interface{}) error {
	for _, k := range []string{"id", "created_at", "updated_at"} {
		delete(data, k)
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	return dec.Decode(data)
}

func listMasterTables(c echo.Context) error {
	db := GetDB(c)
	tables := make([]MasterTableInfo, 0, len(masterTables))
	for i := range masterTables {
		t := &masterTables[i]
		var count int64
		if err := db.Model(t.newRow()).Count(&count).Error; err != nil {
			return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to count "+t.name, err.Error())
		}
		tables = append(tables, MasterTableInfo{Name: t.name, RowCount: count})
	}
	return ok(c, tables)
}

func listMasterRows(c echo.Context) error {
	t, err := masterTableParam(c)
	if t == nil {
		return err
	}
	page, pageSize := parsePagination(c)

	db := GetDB(c).Model(t.newRow())
	db = likeFilter(db, c.QueryParam("q"), t.search...)
	if v := strings.TrimSpace(c.QueryParam("is_active")); v != "" && t.activeCol != "" {
		active, err := strconv.ParseBool(v)
		if err != nil {
			return fail(c, http.StatusBadRequest, "INVALID_FILTER", "is_active must be a boolean", v)
		}
		db = db.Where(t.activeCol+" = ?", active)
	}
	if id := queryInt64(c, "category_id"); id != 0 && t.name == "finance_subcategories" {
		db = db.Where("category_id = ?", id)
	}

	sortField := c.QueryParam("_sort")
	if !masterSortColumns[sortField] {
		sortField = "name"
	}
	sortOrder := strings.ToUpper(c.QueryParam("_order"))
	if sortOrder != "DESC" {
		sortOrder = "ASC"
	}

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query "+t.name, err.Error())
	}
	rows := t.newSlice()
	if err := db.Order(sortField + " " + sortOrder).Offset((page - 1) * pageSize).Limit(pageSize).Find(rows).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query "+t.name, err.Error())
	}
	return paged(c, rows, total, page, pageSize)
}

func loadMasterRow(c echo.Context, t *masterTable) (interface{}, error) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return nil, fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid row ID", nil)
	}
	row := t.newRow()
	if err := GetDB(c).Where("id = ?", id).First(row).Error; errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fail(c, http.StatusNotFound, "ROW_NOT_FOUND", "Row not found", nil)
	} else if err != nil {
		return nil, fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query "+t.name, err.Error())
	}
	return row, nil
}

func getMasterRow(c echo.Context) error {
	t, err := masterTableParam(c)
	if t == nil {
		return err
	}
	row, err := loadMasterRow(c, t)
	if row == nil {
		return err
	}
	return ok(c, row)
}

// bindMasterBody decodes the request body only, path params stay out of the row fields
func bindMasterBody(c echo.Context) (map[string]interface{}, error) {
	data := map[string]interface{}{}
	if err := (&echo.DefaultBinder{}).BindBody(c, &data); err != nil {
		return nil, err
	}
	return data, nil
}

func createMasterRow(c echo.Context) error {
	t, err := masterTableParam(c)
	if t == nil {
		return err
	}
	data, err := bindMasterBody(c)
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body", err.Error())
	}
	row := t.newRow()
	if err := decodeMasterRow(data, row); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse "+t.name+" fields", err.Error())
	}
	if err := validate.Struct(row); err != nil {
		return handleValidationError(c, err)
	}
	reflect.ValueOf(row).Elem().FieldByName("ID").SetInt(common.UUIDint64())
	if _, given := data["is_active"]; !given {
		if f := reflect.ValueOf(row).Elem().FieldByName("IsActive"); f.IsValid() {
			f.SetBool(true)
		}
	}
	if err := GetDB(c).Create(row).Error; err != nil {
		return serviceError(c, err, "ROW_NOT_FOUND")
	}
	GetAppContext(c).Views().Invalidate(t.views...)
	logOperation(c, "create_"+t.name, "created "+t.name+" row")
	return created(c, row)
}

func updateMasterRow(c echo.Context) error {
	t, err := masterTableParam(c)
	if t == nil {
		return err
	}
	row, err := loadMasterRow(c, t)
	if row == nil {
		return err
	}
	data, err := bindMasterBody(c)
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body", err.Error())
	}
	if err := decodeMasterRow(data, row); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse "+t.name+" fields", err.Error())
	}
	if err := validate.Struct(row); err != nil {
		return handleValidationError(c, err)
	}
	if err := GetDB(c).Save(row).Error; err != nil {
		return serviceError(c, err, "ROW_NOT_FOUND")
	}
	GetAppContext(c).Views().Invalidate(t.views...)
	logOperation(c, "update_"+t.name, "updated "+t.name+" "+c.Param("id"))
	return ok(c, row)
}

func deleteMasterRow(c echo.Context) error {
	t, err := masterTableParam(c)
	if t == nil {
		return err
	}
	row, err := loadMasterRow(c, t)
	if row == nil {
		return err
	}
	if err := GetDB(c).Delete(row).Error; err != nil {
		return serviceError(c, err, "ROW_NOT_FOUND")
	}
	GetAppContext(c).Views().Invalidate(t.views...)
	logOperation(c, "delete_"+t.name, "deleted "+t.name+" "+c.Param("id"))
	return c.NoContent(http.StatusNoContent)
}
