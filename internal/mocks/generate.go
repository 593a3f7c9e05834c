package mocks

//go:generate mockery --name EventStore --srcpkg github.com/aevon-lab/eventfold/internal/core/storage --output ./storage --outpkg storagemocks --with-expecter
//go:generate mockery --name PageReader --srcpkg github.com/aevon-lab/eventfold/internal/core/storage --output ./storage --outpkg storagemocks --with-expecter
