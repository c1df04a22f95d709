package domain

var Tables = []interface{}{
	&Product{},
	&Order{},
	&User{},
}
